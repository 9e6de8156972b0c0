package storage_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/bucket-browser/internal/storage"
)

func TestEncodeKey(t *testing.T) {
	cases := map[string]string{
		"folder/my file.txt": "folder/my%20file.txt",
		"plain/key-1_2.~txt": "plain/key-1_2.~txt",
		"a+b/c(1).txt":       "a%2Bb/c%281%29.txt",
		"café/menu.pdf":      "caf%C3%A9/menu.pdf",
		"trailing/":          "trailing/",
		"":                   "",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, storage.EncodeKey(in))
		})
	}
}

func TestRequestURLAndResourceUseSameEncoding(t *testing.T) {
	var captured *http.Request
	c := transportClient(t, func(r *http.Request) (*http.Response, error) {
		captured = r
		return xmlResponse(http.StatusOK, ""), nil
	})

	require.NoError(t, c.UploadItem(context.Background(), "folder/my file.txt", []byte("x"), "text/plain"))
	require.NotNil(t, captured)
	assert.Equal(t, "/test-bucket/folder/my%20file.txt", captured.URL.EscapedPath())

	want := storage.Sign("id", "secret", storage.StringToSign{
		Method:      http.MethodPut,
		Resource:    "/test-bucket/folder/my%20file.txt",
		ContentType: "text/plain",
		Date:        captured.Header.Get("Date"),
	})
	assert.Equal(t, want, captured.Header.Get("Authorization"))
}
