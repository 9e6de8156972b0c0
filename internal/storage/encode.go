package storage

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/minio/minio-go/v7/pkg/s3utils"
)

// EncodeKey percent-encodes every segment of key and keeps "/" literal.
// The same encoding is used for the request URL and the signed resource;
// the provider rejects the signature if the two ever differ.
func EncodeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = s3utils.EncodePath(segment)
	}
	return strings.Join(segments, "/")
}

// checkKey refuses keys that EncodeKey cannot represent byte for byte.
func checkKey(key string) error {
	if !utf8.ValidString(key) {
		return fmt.Errorf("key %q is not valid UTF-8: %w", key, ErrInvalidKey)
	}
	return nil
}
