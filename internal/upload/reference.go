// Package upload turns platform file references into bytes for multipart
// requests.
package upload

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// DefaultFilename is used when nothing better can be derived.
const DefaultFilename = "upload.bin"

// Reference points at a file chosen by the user. Exactly one of Blob or URI is
// expected; Blob wins when both are set.
type Reference struct {
	Blob        []byte
	URI         string
	Filename    string
	ContentType string
}

// Payload is a materialized file ready for a multipart field.
type Payload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Shape is the representation a Reference arrives in.
type Shape string

const (
	ShapeBlob    Shape = "blob"
	ShapeFile    Shape = "file"
	ShapeRemote  Shape = "remote"
	ShapeContent Shape = "content"
)

// ErrEmptyReference is returned for a Reference with neither bytes nor URI.
var ErrEmptyReference = errors.New("file reference is empty")

// opaque schemes are resolved through the platform content reader.
var opaqueSchemes = map[string]bool{
	"content":        true,
	"ph":             true,
	"assets-library": true,
	"blob":           true,
}

// Detect classifies ref by its shape. It never decides by platform.
func Detect(ref Reference) (Shape, error) {
	if ref.Blob != nil {
		return ShapeBlob, nil
	}
	uri := strings.TrimSpace(ref.URI)
	if uri == "" {
		return "", ErrEmptyReference
	}
	if filepath.IsAbs(uri) || strings.HasPrefix(uri, ".") || !strings.Contains(uri, ":") {
		return ShapeFile, nil
	}
	scheme := strings.ToLower(uri[:strings.Index(uri, ":")])
	switch {
	case scheme == "file":
		return ShapeFile, nil
	case scheme == "http" || scheme == "https":
		return ShapeRemote, nil
	case opaqueSchemes[scheme]:
		return ShapeContent, nil
	case len(scheme) == 1:
		// Windows drive letter.
		return ShapeFile, nil
	default:
		return "", fmt.Errorf("unsupported file reference scheme %q", scheme)
	}
}

// localPath converts a file:// URI or bare path to a filesystem path.
func localPath(uri string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(uri), "file:") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse file uri: %w", err)
	}
	if u.Path == "" {
		return u.Opaque, nil
	}
	return u.Path, nil
}

// filenameFor derives a name from the reference: explicit, then URI, then default.
func filenameFor(ref Reference) string {
	if name := strings.TrimSpace(ref.Filename); name != "" {
		return name
	}
	uri := strings.TrimSpace(ref.URI)
	if uri == "" {
		return DefaultFilename
	}
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
		if p == "" {
			p = u.Opaque
		}
	}
	base := path.Base(filepath.ToSlash(p))
	if base == "." || base == "/" || base == "" || !strings.Contains(base, ".") {
		return DefaultFilename
	}
	return base
}
