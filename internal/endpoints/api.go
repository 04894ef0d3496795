// Package endpoints wraps each backend route in a typed call on the request
// pipeline. None of these functions add behaviour of their own.
package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fuelcoach-go/internal/apiclient"
)

const dateLayout = "2006-01-02"

// API groups the domain routes over one client.
type API struct {
	c *apiclient.Client
}

func New(c *apiclient.Client) *API {
	return &API{c: c}
}

// Client returns the underlying request pipeline.
func (a *API) Client() *apiclient.Client { return a.c }

// Date formats t the way the API expects dates.
func Date(t time.Time) string { return t.Format(dateLayout) }

// DateRange bounds list queries. Zero values are omitted and the server picks
// its own default window.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) values() url.Values {
	q := url.Values{}
	if !r.From.IsZero() {
		q.Set("from_date", Date(r.From))
	}
	if !r.To.IsZero() {
		q.Set("to_date", Date(r.To))
	}
	return q
}

// Page is limit/offset pagination. Zero values use server defaults.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(q url.Values) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	return q
}

// Paginated is the list envelope used by paginated routes.
type Paginated[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Object is a loosely typed JSON object for routes whose shape the client does
// not interpret.
type Object map[string]any

func get[T any](ctx context.Context, c *apiclient.Client, path string, q url.Values) (*T, error) {
	return apiclient.DoJSON[T](ctx, c, apiclient.Request{Method: http.MethodGet, Path: path, Query: q})
}

func send[T any](ctx context.Context, c *apiclient.Client, method, path string, body any) (*T, error) {
	return apiclient.DoJSON[T](ctx, c, apiclient.Request{Method: method, Path: path, Body: body})
}

func doUpload[T any](ctx context.Context, c *apiclient.Client, req apiclient.UploadRequest) (*T, error) {
	data, err := c.Upload(ctx, req)
	if err != nil {
		return nil, err
	}
	return apiclient.Decode[T](data)
}

func raw(ctx context.Context, c *apiclient.Client, method, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, apiclient.Request{Method: method, Path: path, Body: body})
}

func itoa(id int) string { return strconv.Itoa(id) }
