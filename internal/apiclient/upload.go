package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"fuelcoach-go/internal/upload"
)

// UploadRequest is a multipart POST carrying one file.
type UploadRequest struct {
	Path      string
	File      upload.Reference
	FieldName string
	Fields    map[string]string
	Query     url.Values
}

// Upload resolves the file reference and posts it as multipart/form-data.
// Uploads follow the same auth rules as Do but are never queued offline.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (json.RawMessage, error) {
	payload, err := c.uploads.Resolve(ctx, req.File)
	if err != nil {
		return nil, err
	}
	return c.UploadPayload(ctx, req, payload)
}

// UploadPayload posts an already materialized file.
func (c *Client) UploadPayload(ctx context.Context, req UploadRequest, payload upload.Payload) (json.RawMessage, error) {
	form, err := upload.Multipart(payload, req.FieldName, req.Fields)
	if err != nil {
		return nil, err
	}
	env := envelope{
		method:      http.MethodPost,
		path:        withQuery(req.Path, req.Query),
		body:        form.Body,
		contentType: form.ContentType,
	}
	return c.run(ctx, env)
}
