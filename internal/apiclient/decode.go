package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "fuelcoach-go/internal/errors"
)

// DoJSON issues req and decodes the body into T. It returns nil for an empty body.
func DoJSON[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	data, err := c.Do(ctx, req)
	if err != nil || data == nil {
		return nil, err
	}
	return Decode[T](data)
}

// Decode unmarshals a body returned by Do.
func Decode[T any](data json.RawMessage) (*T, error) {
	if data == nil {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperrors.Decode(http.StatusOK, err)
	}
	return &out, nil
}
