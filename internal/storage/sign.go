package storage

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"strings"
)

// StringToSign holds the parts of a request covered by the v2 signature.
type StringToSign struct {
	Method      string
	Resource    string
	ContentHash string
	ContentType string
	Date        string
	// Headers are provider extension headers such as x-goog-copy-source.
	Headers map[string]string
}

// String renders the signed payload. The extension header block is left out
// entirely, not as an empty line, when there are no extension headers.
func (s StringToSign) String() string {
	var b strings.Builder
	b.WriteString(s.Method)
	b.WriteByte('\n')
	b.WriteString(s.ContentHash)
	b.WriteByte('\n')
	b.WriteString(s.ContentType)
	b.WriteByte('\n')
	b.WriteString(s.Date)
	if canonical := CanonicalizeHeaders(s.Headers); canonical != "" {
		b.WriteByte('\n')
		b.WriteString(canonical)
	}
	b.WriteByte('\n')
	b.WriteString(s.Resource)
	return b.String()
}

// CanonicalizeHeaders lower-cases header names, sorts them and joins them as
// name:value lines.
func CanonicalizeHeaders(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	type entry struct{ name, value string }
	entries := make([]entry, 0, len(headers))
	for name, value := range headers {
		entries = append(entries, entry{name: strings.ToLower(name), value: value})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].name == entries[j].name {
			return entries[i].value < entries[j].value
		}
		return entries[i].name < entries[j].name
	})
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.name + ":" + e.value
	}
	return strings.Join(lines, "\n")
}

// Sign returns the Authorization header value "AWS <id>:<signature>".
func Sign(accessID, secret string, s StringToSign) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(s.String()))
	return "AWS " + accessID + ":" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
