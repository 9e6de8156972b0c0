package config

import (
	"fmt"
	"os"

	"github.com/rowjay/bucket-browser/internal/cryptoutil"
)

// EncryptConfigFile writes an encrypted copy of a plain config file. The
// output should end in .enc so Load knows to decrypt it.
func EncryptConfigFile(inputPath, outputPath, key string) error {
	if !isEncryptedPath(outputPath) {
		return fmt.Errorf("output %s must end in .enc or .encrypted", outputPath)
	}
	plain, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return err
	}
	sealed, err := cryptoutil.EncryptConfig(plain, parsed)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, sealed, 0o600)
}
