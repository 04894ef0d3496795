package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

// Form is an encoded multipart/form-data body.
type Form struct {
	Body        []byte
	ContentType string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Multipart encodes file under fieldName with the extra string fields. Fields
// are written in key order so the body is deterministic.
func Multipart(file Payload, fieldName string, fields map[string]string) (Form, error) {
	if fieldName == "" {
		fieldName = "file"
	}
	filename := file.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return Form{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fieldName), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return Form{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return Form{}, fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return Form{}, fmt.Errorf("close multipart writer: %w", err)
	}
	return Form{Body: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}
