// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Document is the raw envelope the backend returns for a stored document.
// Callers decode Fields into their own record types.
type Document struct {
	ID     string          `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

// Decode unmarshals the document fields into out.
func (d Document) Decode(out any) error {
	if err := json.Unmarshal(d.Fields, out); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// ListOptions controls ordering and limits for document listings.
type ListOptions struct {
	// OrderBy names the field to sort on (empty = document id).
	OrderBy string
	// Descending reverses the sort order.
	Descending bool
	// Limit caps the number of returned documents (0 = server default).
	Limit int
}

// query renders the options as URL query parameters.
func (o ListOptions) query() string {
	v := url.Values{}
	if o.OrderBy != "" {
		v.Set("orderBy", o.OrderBy)
	}
	if o.Descending {
		v.Set("direction", "desc")
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// listResponse is the wire shape of collection listings.
type listResponse struct {
	Documents []Document `json:"documents"`
}

// createResponse is the wire shape of server-assigned-id creation.
type createResponse struct {
	ID string `json:"id"`
}

// Write is one entry in an atomic commit batch. When Merge is set the data
// is merged into the existing document instead of replacing it.
type Write struct {
	Path  string `json:"path"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data"`
	Merge bool   `json:"merge,omitempty"`
}

// commitRequest is the payload for an atomic multi-document commit.
type commitRequest struct {
	Writes []Write `json:"writes"`
}

// escapePath URL-escapes each segment of a collection path.
func escapePath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// =============================================================================
// DOCUMENT OPERATIONS
// =============================================================================

// GetDocument fetches a single document and decodes its fields into out.
// Missing documents fail with ErrNotFound (via errors.Is).
func (c *Client) GetDocument(ctx context.Context, path, id string, out any) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	var doc Document
	p := fmt.Sprintf("/v1/documents/%s/%s", escapePath(path), url.PathEscape(id))
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &doc); err != nil {
		return err
	}
	return doc.Decode(out)
}

// SetDocument creates or fully replaces a document with a caller-chosen id.
func (c *Client) SetDocument(ctx context.Context, path, id string, data any) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	p := fmt.Sprintf("/v1/documents/%s/%s", escapePath(path), url.PathEscape(id))
	return c.doJSON(ctx, http.MethodPut, p, data, nil)
}

// MergeDocument merges the given fields into an existing document, creating
// it when absent. Fields not named in data are left untouched.
func (c *Client) MergeDocument(ctx context.Context, path, id string, data any) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	p := fmt.Sprintf("/v1/documents/%s/%s", escapePath(path), url.PathEscape(id))
	return c.doJSON(ctx, http.MethodPatch, p, data, nil)
}

// CreateDocument adds a document with a server-assigned id and returns
// that id.
func (c *Client) CreateDocument(ctx context.Context, path string, data any) (string, error) {
	if !c.IsAuthenticated() {
		return "", ErrNotAuthenticated
	}
	var res createResponse
	p := "/v1/documents/" + escapePath(path)
	if err := c.doJSON(ctx, http.MethodPost, p, data, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

// ListDocuments fetches all documents in a collection.
func (c *Client) ListDocuments(ctx context.Context, path string, opts ListOptions) ([]Document, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	var res listResponse
	p := "/v1/documents/" + escapePath(path) + opts.query()
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &res); err != nil {
		return nil, err
	}
	return res.Documents, nil
}

// Commit applies a batch of writes atomically: either every write lands or
// none do. Used to keep a message append and its conversation summary in
// lockstep.
func (c *Client) Commit(ctx context.Context, writes []Write) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if len(writes) == 0 {
		return nil
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/documents:commit", commitRequest{Writes: writes}, nil)
}
