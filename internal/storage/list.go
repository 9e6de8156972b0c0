package storage

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// MaxKeysPerPage is the largest page the provider returns for one listing request.
const MaxKeysPerPage = 1000

// Object is one entry of a listing.
type Object struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	// LastModified is kept in the provider's own format.
	LastModified string `json:"last_modified"`
}

// Listing is the content of one folder: the objects directly inside it and
// the prefixes of its sub-folders.
type Listing struct {
	Objects []Object `json:"objects"`
	Folders []string `json:"folders"`
	// Truncated is set when the folder holds more than one page of entries.
	// Only the first page is returned.
	Truncated bool `json:"truncated,omitempty"`
}

type listBucketResult struct {
	XMLName               xml.Name       `xml:"ListBucketResult"`
	IsTruncated           bool           `xml:"IsTruncated"`
	NextContinuationToken string         `xml:"NextContinuationToken"`
	Contents              []listContent  `xml:"Contents"`
	CommonPrefixes        []commonPrefix `xml:"CommonPrefixes"`
}

type listContent struct {
	Key          string `xml:"Key"`
	Size         string `xml:"Size"`
	LastModified string `xml:"LastModified"`
}

type commonPrefix struct {
	Prefix string `xml:"Prefix"`
}

// ClampMaxKeys bounds a requested page size to 1..MaxKeysPerPage, using the
// maximum when the request is out of range.
func ClampMaxKeys(n int) int {
	if n <= 0 || n > MaxKeysPerPage {
		return MaxKeysPerPage
	}
	return n
}

// ListItems returns every object under prefix, following continuation tokens
// until the provider reports the listing complete. Provider order is kept.
func (c *Client) ListItems(ctx context.Context, prefix string, maxKeys int) ([]Object, error) {
	query := url.Values{}
	query.Set("list-type", "2")
	query.Set("max-keys", strconv.Itoa(ClampMaxKeys(maxKeys)))
	if full := c.objectKey(prefix); full != "" {
		query.Set("prefix", full)
	}

	objects := []Object{}
	for page := 1; ; page++ {
		result, err := c.listPage(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, item := range result.Contents {
			objects = append(objects, c.toObject(item))
		}
		if !result.IsTruncated {
			return objects, nil
		}
		if result.NextContinuationToken == "" {
			return nil, fmt.Errorf("list %q page %d: %w", prefix, page, ErrMissingContinuationToken)
		}
		query.Set("continuation-token", result.NextContinuationToken)
	}
}

// ListFolder returns the objects and sub-folders directly under prefix using
// the provider's delimiter grouping. The folder's own marker object is left
// out. Only one page is fetched.
func (c *Client) ListFolder(ctx context.Context, prefix string) (Listing, error) {
	full := c.objectKey(prefix)
	query := url.Values{}
	query.Set("list-type", "2")
	query.Set("delimiter", "/")
	query.Set("max-keys", strconv.Itoa(MaxKeysPerPage))
	if full != "" {
		query.Set("prefix", full)
	}

	result, err := c.listPage(ctx, query)
	if err != nil {
		return Listing{}, err
	}
	listing := Listing{Objects: []Object{}, Folders: []string{}}
	for _, item := range result.Contents {
		if item.Key == full {
			continue
		}
		listing.Objects = append(listing.Objects, c.toObject(item))
	}
	for _, cp := range result.CommonPrefixes {
		listing.Folders = append(listing.Folders, c.relativeKey(cp.Prefix))
	}
	if result.IsTruncated {
		listing.Truncated = true
		c.log.Warn().Str("prefix", prefix).Int("entries", len(listing.Objects)+len(listing.Folders)).Msg("folder listing truncated to one page")
	}
	return listing, nil
}

func (c *Client) listPage(ctx context.Context, query url.Values) (listBucketResult, error) {
	resp, err := c.send(ctx, request{
		method:   http.MethodGet,
		url:      c.bucketURL() + "?" + query.Encode(),
		resource: c.bucketResource(),
	})
	if err != nil {
		return listBucketResult{}, err
	}
	defer resp.Body.Close()

	var result listBucketResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return listBucketResult{}, fmt.Errorf("decode listing: %w", err)
	}
	return result, nil
}

func (c *Client) toObject(item listContent) Object {
	return Object{
		Key:          c.relativeKey(item.Key),
		Size:         parseSize(item.Size),
		LastModified: item.LastModified,
	}
}

func parseSize(raw string) int64 {
	size, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || size < 0 {
		return 0
	}
	return size
}
