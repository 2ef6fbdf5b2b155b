package catalog

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
)

var (
	ErrServerUnavailable = errors.New("bookshelf server unavailable")
	ErrBadStatus         = errors.New("bookshelf server bad status")
)

// Client drives a running bookshelf server through its JSON API.
type Client struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Add(ctx context.Context, r Record) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, "/books", r, &out)
	return out, err
}

func (c *Client) Find(ctx context.Context, title string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodGet, "/books/search?title="+url.QueryEscape(title), nil, &out)
	return out, err
}

func (c *Client) Remove(ctx context.Context, title string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodDelete, "/books?title="+url.QueryEscape(title), nil, &out)
	return out, err
}

func (c *Client) Borrow(ctx context.Context, title string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, "/books/borrow", titleReq{Title: title}, &out)
	return out, err
}

func (c *Client) Return(ctx context.Context, title string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, "/books/return", titleReq{Title: title}, &out)
	return out, err
}

func (c *Client) List(ctx context.Context) ([]Record, error) {
	var out []Record
	err := c.do(ctx, http.MethodGet, "/books", nil, &out)
	return out, err
}

type apiError struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var ae apiError
	_ = json.NewDecoder(resp.Body).Decode(&ae)
	return decodeAPIError(resp.StatusCode, ae)
}

// decodeAPIError turns an error response back into the catalog error the
// server reported, so callers can match it with errors.Is.
func decodeAPIError(status int, ae apiError) error {
	detail := func(k string) string {
		s, _ := ae.Details[k].(string)
		return s
	}

	switch ae.Code {
	case CodeDuplicate:
		return &DuplicateError{Title: detail("title"), Author: detail("author")}
	case CodeNotFound:
		return &NotFoundError{Title: detail("title")}
	case CodeAlreadyInState:
		return &StateError{Title: detail("title"), Status: Status(detail("status"))}
	case CodeIOFailure:
		return &IOError{Op: "remote", Err: errors.New(ae.Error)}
	}
	return fmt.Errorf("%w: status=%d: %s", ErrBadStatus, status, ae.Error)
}
