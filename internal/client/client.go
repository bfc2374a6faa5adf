// Package client talks to the basecamp HTTP API. Client satisfies
// basecamp.Store and basecamp.PersonalStore, so a Coordinator can run against
// a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/basecamp"
	"github.com/pkordes/trip-basecamp/internal/domain"
)

// Writer identity headers, matching the server.
const (
	headerUserID   = "X-User-ID"
	headerClientID = "X-Client-ID"
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// ReconnectDelay is the pause between event stream reconnects. Defaults
	// to one second.
	ReconnectDelay time.Duration
}

// Client is an HTTP client for one basecamp server.
type Client struct {
	base           *url.URL
	http           *http.Client
	log            *slog.Logger
	reconnectDelay time.Duration
}

var (
	_ basecamp.Store         = (*Client)(nil)
	_ basecamp.PersonalStore = (*Client)(nil)
)

// New returns a Client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client.New: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client.New: unsupported scheme %q", u.Scheme)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	return &Client{
		base:           u,
		http:           opts.HTTPClient,
		log:            opts.Logger.With("component", "client"),
		reconnectDelay: opts.ReconnectDelay,
	}, nil
}

// GetShared returns the trip's basecamp, or nil when it has none.
func (c *Client) GetShared(ctx context.Context, tripID uuid.UUID) (*domain.Basecamp, error) {
	var b domain.Basecamp
	err := c.do(ctx, http.MethodGet, sharedPath(tripID), nil, nil, &b)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("client.Client.GetShared: %w", err)
	}
	return &b, nil
}

type sharedWriteBody struct {
	Name        string              `json:"name,omitempty"`
	Address     string              `json:"address"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	BaseVersion int64               `json:"base_version"`
}

// SetShared sends a conditional write. A lost race returns an error wrapping
// domain.ErrConflict.
func (c *Client) SetShared(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) (domain.Basecamp, error) {
	body := sharedWriteBody{
		Name:        w.Fields.Name,
		Address:     w.Fields.Address,
		Coordinates: w.Fields.Coordinates,
		BaseVersion: w.BaseVersion,
	}
	var b domain.Basecamp
	if err := c.do(ctx, http.MethodPut, sharedPath(tripID), writerHeaders(w), body, &b); err != nil {
		return domain.Basecamp{}, fmt.Errorf("client.Client.SetShared: %w", err)
	}
	return b, nil
}

// ClearShared sends a conditional clear.
func (c *Client) ClearShared(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) error {
	path := sharedPath(tripID) + "?base_version=" + strconv.FormatInt(w.BaseVersion, 10)
	if err := c.do(ctx, http.MethodDelete, path, writerHeaders(w), nil, nil); err != nil {
		return fmt.Errorf("client.Client.ClearShared: %w", err)
	}
	return nil
}

// GetPersonal returns the member's basecamp, or nil when they have none.
func (c *Client) GetPersonal(ctx context.Context, tripID, userID uuid.UUID) (*domain.PersonalBasecamp, error) {
	var p domain.PersonalBasecamp
	err := c.do(ctx, http.MethodGet, personalPath(tripID, userID), nil, nil, &p)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("client.Client.GetPersonal: %w", err)
	}
	return &p, nil
}

// UpsertPersonal stores the member's basecamp.
func (c *Client) UpsertPersonal(ctx context.Context, p domain.PersonalBasecamp) (domain.PersonalBasecamp, error) {
	var out domain.PersonalBasecamp
	if err := c.do(ctx, http.MethodPut, personalPath(p.TripID, p.UserID), nil, p.Fields(), &out); err != nil {
		return domain.PersonalBasecamp{}, fmt.Errorf("client.Client.UpsertPersonal: %w", err)
	}
	return out, nil
}

// DeletePersonal removes a personal basecamp by id. A missing record returns
// an error wrapping domain.ErrNotFound.
func (c *Client) DeletePersonal(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/personal-basecamps/"+id.String(), nil, nil, nil); err != nil {
		return fmt.Errorf("client.Client.DeletePersonal: %w", err)
	}
	return nil
}

func sharedPath(tripID uuid.UUID) string { return "/trips/" + tripID.String() + "/basecamp" }

func personalPath(tripID, userID uuid.UUID) string {
	return "/trips/" + tripID.String() + "/members/" + userID.String() + "/basecamp"
}

func writerHeaders(w domain.SharedWrite) http.Header {
	h := http.Header{}
	if w.UserID != uuid.Nil {
		h.Set(headerUserID, w.UserID.String())
	}
	if w.ClientID != "" {
		h.Set(headerClientID, w.ClientID)
	}
	return h
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends one request and decodes a 2xx JSON response into out (if non-nil).
// Error statuses map onto the domain sentinels.
func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
		return nil
	}

	var e errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
	msg := e.Error.Message
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrConflict, msg)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}
	return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, msg)
}
