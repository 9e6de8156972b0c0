// Package storagetest runs an in-memory object store that speaks the subset
// of the XML API used by storage.Client and checks every request signature.
package storagetest

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rowjay/bucket-browser/internal/storage"
)

const (
	Bucket   = "test-bucket"
	AccessID = "GOOGTESTACCESSID"
	Secret   = "test-secret-key"
)

// Request is one request seen by the server, with the object key decoded.
type Request struct {
	Method     string
	Key        string
	Query      url.Values
	Header     http.Header
	CopySource string
}

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

type fault struct {
	status int
	delay  time.Duration
}

// Server is a fake bucket. The zero value is not usable; call NewServer.
type Server struct {
	srv    *httptest.Server
	prefix string

	mu       sync.Mutex
	objects  map[string]object
	requests []Request
	faults   map[string]fault

	// OmitContinuationToken makes truncated listing pages leave out the token.
	OmitContinuationToken bool
	// Chunked makes object downloads stream without a Content-Length.
	Chunked bool
}

// NewServer starts a fake bucket in gcs header mode and stops it when the
// test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		prefix:  "x-goog-",
		objects: map[string]object{},
		faults:  map[string]fault{},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) URL() string {
	return s.srv.URL + "/"
}

// Config returns a client configuration pointing at the server.
func (s *Server) Config() storage.Config {
	return storage.Config{
		Endpoint: s.URL(),
		Bucket:   Bucket,
		AccessID: AccessID,
		Secret:   Secret,
		Timeout:  5 * time.Second,
		Provider: storage.ProviderGCS,
	}
}

// Client builds a client for the server.
func (s *Server) Client(t testing.TB, opts ...storage.Option) *storage.Client {
	t.Helper()
	c, err := storage.New(s.Config(), opts...)
	if err != nil {
		t.Fatalf("storage client: %v", err)
	}
	return c
}

// Put stores an object directly, bypassing the API.
func (s *Server) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, contentType: "application/octet-stream", modified: time.Now().UTC()}
}

// Object returns the stored content of key.
func (s *Server) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj.data, ok
}

// ContentType returns the content type key was uploaded with.
func (s *Server) ContentType(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key].contentType
}

// Keys returns every stored key in lexical order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedKeys()
}

// Fail makes requests with method on key answer status. An empty key
// matches bucket-level requests such as listings.
func (s *Server) Fail(method, key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+key] = fault{status: status}
}

// Delay holds requests with method on key for d before answering.
func (s *Server) Delay(method, key string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+key] = fault{delay: d}
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != Bucket {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist.")
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:     r.Method,
		Key:        key,
		Query:      r.URL.Query(),
		Header:     r.Header.Clone(),
		CopySource: r.Header.Get(s.prefix + "copy-source"),
	})
	f, faulty := s.faults[r.Method+" "+key]
	s.mu.Unlock()

	if faulty && f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}
	if !s.validSignature(r) {
		writeError(w, http.StatusForbidden, "SignatureDoesNotMatch", "The request signature we calculated does not match the signature you provided.")
		return
	}
	if faulty && f.status != 0 {
		writeError(w, f.status, http.StatusText(f.status), "injected failure")
		return
	}

	switch {
	case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
		s.list(w, r.URL.Query())
	case r.Method == http.MethodGet:
		s.get(w, key)
	case r.Method == http.MethodHead:
		s.head(w, key)
	case r.Method == http.MethodPut:
		s.put(w, r, key)
	case r.Method == http.MethodDelete:
		s.delete(w, key)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method)
	}
}

func (s *Server) validSignature(r *http.Request) bool {
	headers := map[string]string{}
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, s.prefix) {
			headers[lower] = strings.Join(values, ",")
		}
	}
	want := storage.Sign(AccessID, Secret, storage.StringToSign{
		Method:      r.Method,
		Resource:    r.URL.EscapedPath(),
		ContentHash: r.Header.Get("Content-MD5"),
		ContentType: r.Header.Get("Content-Type"),
		Date:        r.Header.Get("Date"),
		Headers:     headers,
	})
	return r.Header.Get("Authorization") == want
}

func (s *Server) get(w http.ResponseWriter, key string) {
	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
		return
	}
	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("Last-Modified", obj.modified.Format(http.TimeFormat))
	if s.Chunked {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write(obj.data)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
	_, _ = w.Write(obj.data)
}

func (s *Server) head(w http.ResponseWriter, key string) {
	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
	w.Header().Set("Last-Modified", obj.modified.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) put(w http.ResponseWriter, r *http.Request, key string) {
	if source := r.Header.Get(s.prefix + "copy-source"); source != "" {
		src, err := url.PathUnescape(strings.TrimPrefix(source, "/"+Bucket+"/"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidArgument", err.Error())
			return
		}
		s.mu.Lock()
		obj, ok := s.objects[src]
		if ok {
			obj.modified = time.Now().UTC()
			s.objects[key] = obj
		}
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
			return
		}
		fmt.Fprintf(w, "<CopyObjectResult><LastModified>%s</LastModified></CopyObjectResult>", obj.modified.Format(time.RFC3339))
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}
	s.mu.Lock()
	s.objects[key] = object{data: data, contentType: r.Header.Get("Content-Type"), modified: time.Now().UTC()}
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) delete(w http.ResponseWriter, key string) {
	s.mu.Lock()
	_, ok := s.objects[key]
	delete(s.objects, key)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listResult struct {
	XMLName               xml.Name       `xml:"ListBucketResult"`
	Name                  string         `xml:"Name"`
	Prefix                string         `xml:"Prefix"`
	KeyCount              int            `xml:"KeyCount"`
	MaxKeys               int            `xml:"MaxKeys"`
	IsTruncated           bool           `xml:"IsTruncated"`
	NextContinuationToken string         `xml:"NextContinuationToken,omitempty"`
	Contents              []listContent  `xml:"Contents"`
	CommonPrefixes        []commonPrefix `xml:"CommonPrefixes"`
}

type listContent struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	LastModified string `xml:"LastModified"`
}

type commonPrefix struct {
	Prefix string `xml:"Prefix"`
}

// list pages through the sorted keys. The continuation token is the last
// entry of the previous page.
func (s *Server) list(w http.ResponseWriter, q url.Values) {
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	token := q.Get("continuation-token")
	maxKeys, err := strconv.Atoi(q.Get("max-keys"))
	if err != nil || maxKeys <= 0 {
		maxKeys = storage.MaxKeysPerPage
	}

	s.mu.Lock()
	keys := s.sortedKeys()
	objects := make(map[string]object, len(s.objects))
	for k, v := range s.objects {
		objects[k] = v
	}
	s.mu.Unlock()

	result := listResult{Name: Bucket, Prefix: prefix, MaxKeys: maxKeys}
	seen := map[string]bool{}
	last := ""
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if token != "" && (key <= token || (strings.HasSuffix(token, delimiter) && delimiter != "" && strings.HasPrefix(key, token))) {
			continue
		}
		entry := key
		isPrefix := false
		if delimiter != "" {
			if idx := strings.Index(key[len(prefix):], delimiter); idx >= 0 {
				entry = key[:len(prefix)+idx+len(delimiter)]
				isPrefix = true
			}
		}
		if isPrefix && seen[entry] {
			continue
		}
		if result.KeyCount == maxKeys {
			result.IsTruncated = true
			break
		}
		if isPrefix {
			seen[entry] = true
			result.CommonPrefixes = append(result.CommonPrefixes, commonPrefix{Prefix: entry})
		} else {
			obj := objects[key]
			result.Contents = append(result.Contents, listContent{
				Key:          key,
				Size:         len(obj.data),
				LastModified: obj.modified.Format(time.RFC3339),
			})
		}
		result.KeyCount++
		last = entry
	}
	if result.IsTruncated && !s.OmitContinuationToken {
		result.NextContinuationToken = last
	}

	w.Header().Set("Content-Type", "application/xml")
	_ = xml.NewEncoder(w).Encode(result)
}

func (s *Server) sortedKeys() []string {
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Error><Code>%s</Code><Message>%s</Message></Error>", code, message)
}
