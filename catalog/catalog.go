// Package catalog reads the dashboard collections: authors, books and images.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shelfdesk/shelfadmin/apiclient"
	"github.com/shelfdesk/shelfadmin/session"
)

// Kind names a collection.
type Kind string

const (
	Authors Kind = "authors"
	Books   Kind = "books"
	Images  Kind = "images"
)

// Kinds lists every collection in display order.
var Kinds = []Kind{Authors, Books, Images}

// Path returns the endpoint serving k.
func (k Kind) Path() (string, error) {
	switch k {
	case Authors:
		return "/author", nil
	case Books:
		return "/book", nil
	case Images:
		return "/image", nil
	}
	return "", fmt.Errorf("unknown collection %q", string(k))
}

// ParseKind maps a user-supplied name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, err := k.Path(); err != nil {
		return "", err
	}
	return k, nil
}

// Record is one collection entry as sent by the server.
type Record map[string]any

// Client lists collections through a shared apiclient.Client, so the session
// hooks registered on it apply to every read.
type Client struct {
	api    *apiclient.Client
	logger *slog.Logger
}

// New returns a catalog client. A nil logger means slog.Default.
func New(api *apiclient.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, logger: logger}
}

// List fetches every record of k, bypassing HTTP caches.
func (c *Client) List(ctx context.Context, k Kind) ([]Record, error) {
	path, err := k.Path()
	if err != nil {
		return nil, &session.Error{Message: err.Error(), Err: fmt.Errorf("%w: %v", session.ErrInvalidInput, err)}
	}
	var raw json.RawMessage
	if _, err := c.api.Get(ctx, path, &raw, apiclient.NoCache()); err != nil {
		return nil, session.NormalizeError(err)
	}
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, session.NormalizeError(fmt.Errorf("decoding %s: %w", k, err))
	}
	c.logger.Debug("listed collection", "kind", k, "count", len(records))
	return records, nil
}

// Summary holds the size of each collection.
type Summary map[Kind]int

// Summary fetches all collections concurrently and counts them. The first
// failure cancels the remaining reads.
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	counts := make([]int, len(Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range Kinds {
		g.Go(func() error {
			records, err := c.List(gctx, k)
			if err != nil {
				return err
			}
			counts[i] = len(records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(Summary, len(Kinds))
	for i, k := range Kinds {
		out[k] = counts[i]
	}
	return out, nil
}

// decodeRecords accepts a bare array or an object carrying the array in "data".
func decodeRecords(raw json.RawMessage) ([]Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Record{}, nil
	}
	if raw[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		if len(env.Data) == 0 {
			return nil, errors.New("response object has no data array")
		}
		raw = bytes.TrimSpace(env.Data)
		if bytes.Equal(raw, []byte("null")) {
			return []Record{}, nil
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
