package storage

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
)

var (
	ErrTimeout = errors.New("storage request timed out")
	// ErrMissingContinuationToken is a protocol violation: the provider marked a
	// listing page as truncated but gave no token to fetch the next one.
	ErrMissingContinuationToken = errors.New("listing truncated without continuation token")
	ErrNotFound                 = errors.New("object not found")
	ErrInvalidKey               = errors.New("invalid object key")
)

const maxErrorBody = 4 << 10

// ResponseError is a non-2xx answer from the provider.
type ResponseError struct {
	Method     string
	Resource   string
	StatusCode int
	Status     string
	Code       string
	Message    string
	Body       string
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.Resource, e.Status)
	switch {
	case e.Code != "" && e.Message != "":
		msg += ": " + e.Code + ": " + e.Message
	case e.Code != "":
		msg += ": " + e.Code
	case e.Body != "":
		msg += ": " + e.Body
	}
	return msg
}

// Is makes 404 responses match ErrNotFound.
func (e *ResponseError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func newResponseError(method, resource string, resp *http.Response) *ResponseError {
	rerr := &ResponseError{
		Method:     method,
		Resource:   resource,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	rerr.Body = strings.TrimSpace(string(body))
	var doc minio.ErrorResponse
	if len(body) > 0 && xml.Unmarshal(body, &doc) == nil {
		rerr.Code = doc.Code
		rerr.Message = doc.Message
	}
	return rerr
}

// FolderError reports the first object that failed inside a folder
// operation. Objects processed before it keep their new state.
type FolderError struct {
	Op   string
	Key  string
	Done int
	Err  error
}

func (e *FolderError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s folder: stopped after %d objects: %v", e.Op, e.Done, e.Err)
	}
	return fmt.Sprintf("%s folder: %s failed after %d objects: %v", e.Op, e.Key, e.Done, e.Err)
}

func (e *FolderError) Unwrap() error {
	return e.Err
}
