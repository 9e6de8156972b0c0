package cryptoutil

import (
	"bytes"
	"fmt"

	"github.com/minio/sio"
)

const configMagic = "BKT1"

// EncryptConfig encrypts a config payload as a DARE stream behind a small header.
func EncryptConfig(plain []byte, key []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString(configMagic)
	if _, err := sio.Encrypt(buf, bytes.NewReader(plain), sio.Config{Key: key}); err != nil {
		return nil, fmt.Errorf("encrypt config: %w", err)
	}
	return buf.Bytes(), nil
}

// DecryptConfig decrypts a payload written by EncryptConfig.
func DecryptConfig(ciphertext []byte, key []byte) ([]byte, error) {
	if len(ciphertext) < len(configMagic) {
		return nil, fmt.Errorf("config cipher too short")
	}
	if string(ciphertext[:len(configMagic)]) != configMagic {
		return nil, fmt.Errorf("invalid config header")
	}
	plain := &bytes.Buffer{}
	if _, err := sio.Decrypt(plain, bytes.NewReader(ciphertext[len(configMagic):]), sio.Config{Key: key}); err != nil {
		return nil, fmt.Errorf("decrypt config: %w", err)
	}
	return plain.Bytes(), nil
}
