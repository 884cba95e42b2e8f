// Package client provides an HTTP implementation of the
// assetstore.Service interface, so callers (including the transfer
// orchestrator) run unchanged against a remote store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
)

// Client is an HTTP client for the asset store API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the asset store API at baseURL,
// authenticating with the given bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ assetstore.Service = (*Client)(nil)

type errorResponse struct {
	Error string `json:"error"`
}

type storeAssetRequest struct {
	ContentType string                `json:"content_type"`
	Data        []byte                `json:"data"`
	Entity      *assetstore.EntityRef `json:"entity,omitempty"`
}

type storeAssetResponse struct {
	ID          uuid.UUID `json:"id"`
	ContentType string    `json:"content_type"`
	Owner       uuid.UUID `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
}

type beginChunkedRequest struct {
	ContentType string                `json:"content_type"`
	TotalSize   int64                 `json:"total_size"`
	Entity      *assetstore.EntityRef `json:"entity,omitempty"`
}

type uploadChunkRequest struct {
	Seq  int    `json:"seq"`
	Data []byte `json:"data"`
}

type uploadChunkResponse struct {
	ChunkID uuid.UUID `json:"chunk_id"`
}

type finalizeRequest struct {
	ExpectedSize int64  `json:"expected_size"`
	Checksum     string `json:"checksum,omitempty"`
}

type sweepRequest struct {
	OlderThanSeconds int64 `json:"older_than_seconds"`
}

type sweepResponse struct {
	Swept int `json:"swept"`
}

func (c *Client) StoreAsset(ctx context.Context, req assetstore.StoreAssetRequest) (*assetstore.Asset, error) {
	var resp storeAssetResponse
	err := c.doJSON(ctx, http.MethodPost, "/assets", storeAssetRequest{
		ContentType: req.ContentType,
		Data:        req.Data,
		Entity:      req.Entity,
	}, &resp)
	if err != nil {
		return nil, err
	}

	// The store reports id, owner and creation time; payload and entity
	// tag are not echoed back, so they come from the request.
	return &assetstore.Asset{
		ID:          resp.ID,
		ContentType: resp.ContentType,
		Owner:       resp.Owner,
		CreatedAt:   resp.CreatedAt,
		Data:        req.Data,
		Entity:      req.Entity,
	}, nil
}

func (c *Client) GetAsset(ctx context.Context, id uuid.UUID) (*assetstore.Asset, error) {
	var asset assetstore.Asset
	found, err := c.getJSON(ctx, "/assets/"+id.String(), &asset)
	if err != nil || !found {
		return nil, err
	}
	return &asset, nil
}

func (c *Client) BeginChunkedAsset(ctx context.Context, req assetstore.BeginChunkedAssetRequest) (*assetstore.ChunkedAsset, error) {
	var asset assetstore.ChunkedAsset
	err := c.doJSON(ctx, http.MethodPost, "/assets/chunked", beginChunkedRequest{
		ContentType: req.ContentType,
		TotalSize:   req.TotalSize,
		Entity:      req.Entity,
	}, &asset)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (c *Client) UploadChunk(ctx context.Context, req assetstore.UploadChunkRequest) (uuid.UUID, error) {
	var resp uploadChunkResponse
	err := c.doJSON(ctx, http.MethodPost,
		"/assets/chunked/"+req.AssetID.String()+"/chunks",
		uploadChunkRequest{Seq: req.Seq, Data: req.Data}, &resp)
	if err != nil {
		return uuid.Nil, err
	}
	return resp.ChunkID, nil
}

func (c *Client) FinalizeChunkedAsset(ctx context.Context, req assetstore.FinalizeChunkedAssetRequest) (*assetstore.ChunkedAsset, error) {
	var asset assetstore.ChunkedAsset
	err := c.doJSON(ctx, http.MethodPost,
		"/assets/chunked/"+req.AssetID.String()+"/finalize",
		finalizeRequest{ExpectedSize: req.ExpectedSize, Checksum: req.Checksum}, &asset)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (c *Client) AbortChunkedAsset(ctx context.Context, req assetstore.AbortChunkedAssetRequest) error {
	return c.doJSON(ctx, http.MethodDelete, "/assets/chunked/"+req.AssetID.String(), nil, nil)
}

func (c *Client) GetChunkedAssetInfo(ctx context.Context, id uuid.UUID) (*assetstore.ChunkedAsset, error) {
	var asset assetstore.ChunkedAsset
	found, err := c.getJSON(ctx, "/assets/chunked/"+id.String(), &asset)
	if err != nil || !found {
		return nil, err
	}
	return &asset, nil
}

func (c *Client) GetChunk(ctx context.Context, id uuid.UUID) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/chunks/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.responseError(resp)
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) SweepExpiredSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	var resp sweepResponse
	err := c.doJSON(ctx, http.MethodPost, "/admin/sweep",
		sweepRequest{OlderThanSeconds: int64(olderThan.Seconds())}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Swept, nil
}

// Helpers

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON sends a mutating request and decodes the response into out
// when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.responseError(resp)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// getJSON sends a query request. A 404 is a miss, not an error.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, c.responseError(resp)
	}

	return true, json.NewDecoder(resp.Body).Decode(out)
}

// responseError maps an HTTP error status back onto the service's
// sentinel errors.
func (c *Client) responseError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	var base error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		base = assetstore.ErrValidation
	case http.StatusUnauthorized:
		base = assetstore.ErrUnauthorized
	case http.StatusNotFound:
		base = assetstore.ErrAssetNotFound
	case http.StatusConflict:
		base = assetstore.ErrSessionSealed
	case http.StatusInsufficientStorage:
		base = assetstore.ErrStorageFull
	default:
		return fmt.Errorf("asset store returned status %d: %s", resp.StatusCode, body.Error)
	}

	if body.Error != "" {
		return fmt.Errorf("%w: %s", base, body.Error)
	}
	return base
}
