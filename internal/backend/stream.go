// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Snapshot is one full-state event from a watch stream: the complete
// current contents of the watched collection.
type Snapshot struct {
	Documents []Document
}

// SnapshotCallback is called for each snapshot received from a watch stream.
type SnapshotCallback func(snap Snapshot)

// StreamError represents a watch stream failure, preserving how many
// snapshots arrived before the drop.
type StreamError struct {
	Snapshots int
	Err       error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("watch stream error (after %d snapshots): %v", e.Snapshots, e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type, data, and any error.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// If we have data, return it before EOF
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// WATCH STREAMS
// =============================================================================

// Watch opens a live watch on a collection and invokes callback with the
// full collection state for every change, starting with the current state.
// Blocks until the stream ends, the server closes it, or ctx is cancelled.
func (c *Client) Watch(ctx context.Context, path string, opts ListOptions, callback SnapshotCallback) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	p := "/v1/documents/" + escapePath(path) + ":watch" + opts.query()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+p, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// Timeout handled via context, not the client.
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return decodeError(resp.StatusCode, body)
	}

	return c.processWatch(ctx, resp.Body, callback)
}

// processWatch reads and processes the SSE stream.
func (c *Client) processWatch(ctx context.Context, body io.Reader, callback SnapshotCallback) error {
	reader := NewSSEReader(body)
	snapshots := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		eventType, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return &StreamError{Snapshots: snapshots, Err: err}
		}

		// Heartbeats keep the connection alive; only snapshots carry data.
		if eventType != "" && eventType != "snapshot" {
			continue
		}

		var docs []Document
		if err := json.Unmarshal(data, &docs); err != nil {
			// Skip malformed events rather than killing the stream.
			continue
		}

		snapshots++
		callback(Snapshot{Documents: docs})
	}
}

// WatchWithRetry keeps a watch alive across dropped connections,
// reconnecting after retryDelay. Returns only on context cancellation or a
// non-retryable error (auth failure, missing collection).
func (c *Client) WatchWithRetry(ctx context.Context, path string, opts ListOptions, retryDelay time.Duration, callback SnapshotCallback) error {
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}

	for {
		err := c.Watch(ctx, path, opts, callback)
		if err == nil {
			// Server closed the stream cleanly; reconnect.
		} else {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}
