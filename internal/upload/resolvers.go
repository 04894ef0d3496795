package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"fuelcoach-go/internal/constants"
)

// MaxPayloadBytes caps a single resolved file.
const MaxPayloadBytes = 32 << 20

// Resolver materializes one reference shape into bytes.
type Resolver interface {
	ResolveToBinary(ctx context.Context, ref Reference) (Payload, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, ref Reference) (Payload, error)

func (f ResolverFunc) ResolveToBinary(ctx context.Context, ref Reference) (Payload, error) {
	return f(ctx, ref)
}

// ContentReader opens opaque platform URIs (content://, ph://, blob:).
// Implementations must return raw bytes, never a text decoding of them.
type ContentReader interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// ErrNoContentReader is returned when an opaque URI arrives on a platform with
// no content reader configured.
var ErrNoContentReader = errors.New("no content reader for opaque file reference")

// BlobResolver passes in-memory bytes through.
type BlobResolver struct{}

func (BlobResolver) ResolveToBinary(_ context.Context, ref Reference) (Payload, error) {
	return Payload{Data: append([]byte(nil), ref.Blob...)}, nil
}

// FileResolver reads local files.
type FileResolver struct{}

func (FileResolver) ResolveToBinary(_ context.Context, ref Reference) (Payload, error) {
	p, err := localPath(ref.URI)
	if err != nil {
		return Payload{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return Payload{}, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()
	data, err := readLimited(f)
	if err != nil {
		return Payload{}, fmt.Errorf("read %s: %w", p, err)
	}
	return Payload{Data: data}, nil
}

// FetchResolver downloads http(s) references directly.
type FetchResolver struct {
	Client *http.Client
}

func (r FetchResolver) ResolveToBinary(ctx context.Context, ref Reference) (Payload, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URI, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", constants.DefaultUserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("fetch %s: %w", ref.URI, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Payload{}, fmt.Errorf("fetch %s: unexpected status %d", ref.URI, resp.StatusCode)
	}
	data, err := readLimited(resp.Body)
	if err != nil {
		return Payload{}, fmt.Errorf("fetch %s: %w", ref.URI, err)
	}
	return Payload{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// ContentResolver reads opaque URIs through a platform ContentReader.
type ContentResolver struct {
	Reader ContentReader
}

func (r ContentResolver) ResolveToBinary(ctx context.Context, ref Reference) (Payload, error) {
	if r.Reader == nil {
		return Payload{}, ErrNoContentReader
	}
	rc, err := r.Reader.Open(ctx, ref.URI)
	if err != nil {
		return Payload{}, fmt.Errorf("open %s: %w", ref.URI, err)
	}
	defer rc.Close()
	data, err := readLimited(rc)
	if err != nil {
		return Payload{}, fmt.Errorf("read %s: %w", ref.URI, err)
	}
	return Payload{Data: data}, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxPayloadBytes+1))
	if err != nil {
		return nil, err
	}
	if n > MaxPayloadBytes {
		return nil, fmt.Errorf("file larger than %d bytes", MaxPayloadBytes)
	}
	return buf.Bytes(), nil
}
