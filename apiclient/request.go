package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

// Request describes one backend call. Path is relative to the base URL and
// may carry its own query string, which is merged with Query.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON encoded unless it already is []byte or json.RawMessage.
	Body   any
	Header http.Header

	// Silent suppresses the failure notification.
	Silent bool
	// SkipRecovery turns off refresh-and-retry for this call. Auth failures
	// are then returned like any other failure.
	SkipRecovery bool

	retried bool
}

func (r *Request) clone() *Request {
	c := *r
	if r.Header != nil {
		c.Header = r.Header.Clone()
	}
	return &c
}

// Response is a successful (status < 400) backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Doer executes requests through the pipeline.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Pagination is the envelope pagination block.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from,omitempty"`
	To          int `json:"to,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the backend response wrapper.
type Envelope[T any] struct {
	Status     string      `json:"status"`
	Message    string      `json:"message"`
	Data       T           `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

func (e *Envelope[T]) Succeeded() bool {
	return e.Status == StatusSuccess
}

// MessageOr returns the server message or fallback.
func (e *Envelope[T]) MessageOr(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// Decode parses a response body into an envelope. A body that does not
// parse yields a KindBadResponse error with the generic message.
func Decode[T any](resp *Response) (*Envelope[T], error) {
	var env Envelope[T]
	if len(resp.Body) == 0 {
		return &env, nil
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		log.Debug().Err(err).Int("status", resp.Status).Msg("undecodable response body")
		return nil, &Error{Kind: KindBadResponse, Status: resp.Status, Message: MsgGeneric, cause: err}
	}
	return &env, nil
}

// Send runs req and decodes the envelope.
func Send[T any](ctx context.Context, d Doer, req *Request) (*Envelope[T], error) {
	resp, err := d.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return Decode[T](resp)
}

func Get(path string, query url.Values) *Request {
	return &Request{Method: http.MethodGet, Path: path, Query: query}
}

func Post(path string, body any) *Request {
	return &Request{Method: http.MethodPost, Path: path, Body: body}
}

func Put(path string, body any) *Request {
	return &Request{Method: http.MethodPut, Path: path, Body: body}
}

func Patch(path string, body any) *Request {
	return &Request{Method: http.MethodPatch, Path: path, Body: body}
}

func Delete(path string) *Request {
	return &Request{Method: http.MethodDelete, Path: path}
}
