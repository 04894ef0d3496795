package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"

	apperrors "fuelcoach-go/internal/errors"
	"fuelcoach-go/internal/monitoring"
	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
)

// ErrEmptyPayload is returned when a reference resolves to zero bytes.
var ErrEmptyPayload = errors.New("file reference resolved to an empty payload")

// Adapter picks a Resolver by reference shape.
type Adapter struct {
	resolvers map[Shape]Resolver
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithResolver replaces the resolver for shape.
func WithResolver(shape Shape, r Resolver) Option {
	return func(a *Adapter) { a.resolvers[shape] = r }
}

// WithContentReader installs the platform reader for opaque URIs.
func WithContentReader(cr ContentReader) Option {
	return WithResolver(ShapeContent, ContentResolver{Reader: cr})
}

// NewAdapter returns an Adapter with blob, file and fetch support. Opaque URIs
// fail until a content reader is installed.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{resolvers: map[Shape]Resolver{
		ShapeBlob:    BlobResolver{},
		ShapeFile:    FileResolver{},
		ShapeRemote:  FetchResolver{},
		ShapeContent: ContentResolver{},
	}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Resolve materializes ref. Every failure is returned as a KindUpload error.
func (a *Adapter) Resolve(ctx context.Context, ref Reference) (Payload, error) {
	shape, err := Detect(ref)
	if err != nil {
		return Payload{}, apperrors.Upload(err)
	}
	resolver, ok := a.resolvers[shape]
	if !ok || resolver == nil {
		return Payload{}, apperrors.Upload(fmt.Errorf("no resolver for %s reference", shape))
	}

	p, err := resolver.ResolveToBinary(ctx, ref)
	if err == nil && len(p.Data) == 0 {
		err = ErrEmptyPayload
	}
	monitoring.RecordUpload(string(shape), err == nil)
	if err != nil {
		log.WithFields(log.Fields{"shape": shape}).WithError(err).Debug("file reference not resolved")
		return Payload{}, apperrors.Upload(err)
	}

	p.Filename = filenameFor(ref)
	if ref.ContentType != "" {
		p.ContentType = ref.ContentType
	}
	if p.ContentType == "" {
		p.ContentType = contentTypeFor(p.Filename, p.Data)
	}
	return p, nil
}

func contentTypeFor(filename string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}
