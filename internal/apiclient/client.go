// Package apiclient calls the quotes HTTP API on behalf of a signed-in viewer.
// Client satisfies optimistic.Mutator so the coordinator can drive real toggles.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eminence/internal/models"
	"eminence/internal/optimistic"
)

const defaultTimeout = 10 * time.Second

// Doer sends a request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource returns the bearer token to use for viewerID.
type TokenSource interface {
	Token(ctx context.Context, viewerID string) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context, viewerID string) (string, error)

func (f TokenFunc) Token(ctx context.Context, viewerID string) (string, error) {
	return f(ctx, viewerID)
}

// StaticToken always returns the same token.
func StaticToken(token string) TokenSource {
	return TokenFunc(func(context.Context, string) (string, error) { return token, nil })
}

// Client talks to the API rooted at baseURL.
type Client struct {
	baseURL string
	doer    Doer
	tokens  TokenSource
}

// New creates a client. A nil doer uses an *http.Client with a 10s timeout.
func New(baseURL string, doer Doer, tokens TokenSource) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		tokens:  tokens,
	}
}

// Toggle flips the viewer's like or bookmark on a quote.
func (c *Client) Toggle(ctx context.Context, quoteID, viewerID string, kind optimistic.Kind) (optimistic.ServerState, error) {
	var action string
	switch kind {
	case optimistic.KindLike:
		action = "like"
	case optimistic.KindBookmark:
		action = "bookmark"
	default:
		return optimistic.ServerState{}, models.NewValidationError(fmt.Sprintf("unknown toggle kind %q", kind))
	}

	var resp models.ToggleResponse
	path := "/api/quotes/" + url.PathEscape(quoteID) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, viewerID, nil, &resp); err != nil {
		return optimistic.ServerState{}, err
	}
	return optimistic.ServerState{Member: resp.Member, Count: resp.Count}, nil
}

// Quote fetches a quote as viewerID sees it.
func (c *Client) Quote(ctx context.Context, quoteID, viewerID string) (*models.Quote, error) {
	var q models.Quote
	if err := c.do(ctx, http.MethodGet, "/api/quotes/"+url.PathEscape(quoteID), viewerID, nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// SeedFrom loads a quote and seeds both toggle keys of the coordinator with it.
func (c *Client) SeedFrom(ctx context.Context, coord *optimistic.Coordinator, quoteID, viewerID string) (*models.Quote, error) {
	q, err := c.Quote(ctx, quoteID, viewerID)
	if err != nil {
		return nil, err
	}
	coord.Seed(optimistic.Key{QuoteID: quoteID, ViewerID: viewerID, Kind: optimistic.KindLike},
		optimistic.ServerState{Member: q.Liked, Count: q.Likes})
	coord.Seed(optimistic.Key{QuoteID: quoteID, ViewerID: viewerID, Kind: optimistic.KindBookmark},
		optimistic.ServerState{Member: q.Bookmarked})
	return q, nil
}

func (c *Client) do(ctx context.Context, method, path, viewerID string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil && viewerID != "" {
		token, err := c.tokens.Token(ctx, viewerID)
		if err != nil {
			return models.NewUnauthorizedError(err.Error())
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return models.NewTransientError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError turns an error response back into an AppError.
func decodeError(resp *http.Response) error {
	var payload models.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}
	code := payload.Code
	if code == "" {
		code = codeForStatus(resp.StatusCode)
	}
	appErr := &models.AppError{Code: code, Message: payload.Error}
	if payload.Details != "" {
		appErr.Err = errors.New(payload.Details)
	}
	return appErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.CodeValidation
	case http.StatusUnauthorized:
		return models.CodeUnauthorized
	case http.StatusForbidden:
		return models.CodeForbidden
	case http.StatusNotFound:
		return models.CodeNotFound
	case http.StatusConflict:
		return models.CodeConflict
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return models.CodeTransient
	default:
		return models.CodeInternal
	}
}
