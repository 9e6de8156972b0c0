package util

import (
	"path"
	"strings"
)

// IsFolderKey reports whether key names a folder (a prefix ending in "/").
func IsFolderKey(key string) bool {
	return strings.HasSuffix(key, "/")
}

// FolderKey returns key with exactly one trailing "/". The bucket root ("" or "/") is "".
func FolderKey(key string) string {
	trimmed := strings.TrimRight(key, "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

// RemapKey moves key from under srcPrefix to under dstPrefix, keeping the rest of the key as is.
func RemapKey(key, srcPrefix, dstPrefix string) string {
	return dstPrefix + strings.TrimPrefix(key, srcPrefix)
}

// DisplayName returns the last path segment of key, without the folder suffix.
func DisplayName(key string) string {
	trimmed := strings.TrimSuffix(key, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// JoinKey joins key segments with "/", dropping empty segments.
// A trailing "/" on the last segment is kept so folder keys survive the join.
func JoinKey(parts ...string) string {
	kept := []string{}
	for _, p := range parts {
		if trimmed := strings.Trim(p, "/"); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	joined := path.Join(kept...)
	if len(parts) > 0 && IsFolderKey(parts[len(parts)-1]) && joined != "" {
		joined += "/"
	}
	return joined
}
