package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/marquee/internal/models"
)

// FormField is one flattened multipart field: either a text value or a file.
type FormField struct {
	Name  string
	Value string
	File  *models.FileHandle
}

// Flatten converts form state into ordered multipart fields.
//
// Groups become name[key], lists become name[i], booleans become "1"/"0".
// Empty strings, nils and empty groups or lists are left out.
func Flatten(f models.FormState) []FormField {
	var fields []FormField
	for _, key := range f.Keys() {
		fields = flattenValue(fields, key, f[key])
	}
	return fields
}

func flattenValue(fields []FormField, name string, v any) []FormField {
	switch val := v.(type) {
	case nil:
		return fields
	case *models.FileHandle:
		if val == nil {
			return fields
		}
		return append(fields, FormField{Name: name, File: val})
	case string:
		if strings.TrimSpace(val) == "" {
			return fields
		}
		return append(fields, FormField{Name: name, Value: val})
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fields = flattenValue(fields, name+"["+k+"]", val[k])
		}
		return fields
	case []any:
		for i, item := range val {
			fields = flattenValue(fields, name+"["+strconv.Itoa(i)+"]", item)
		}
		return fields
	case []string:
		for i, item := range val {
			fields = flattenValue(fields, name+"["+strconv.Itoa(i)+"]", item)
		}
		return fields
	}
	return append(fields, FormField{Name: name, Value: models.ScalarString(v)})
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// MultipartBody is a multipart/form-data payload whose exact length is known
// before any byte is sent. Files are streamed from disk, not buffered.
type MultipartBody struct {
	fields   []FormField
	boundary string
	length   int64
}

// NewMultipartBody flattens f and measures the encoded size.
func NewMultipartBody(f models.FormState) (*MultipartBody, error) {
	b := &MultipartBody{
		fields:   Flatten(f),
		boundary: multipart.NewWriter(io.Discard).Boundary(),
	}

	cw := &countingWriter{}
	if err := b.encode(cw, true); err != nil {
		return nil, fmt.Errorf("failed to measure multipart body: %w", err)
	}
	b.length = cw.n
	return b, nil
}

// Fields returns the flattened fields in wire order.
func (b *MultipartBody) Fields() []FormField {
	return b.fields
}

// ContentType returns the multipart content type including the boundary.
func (b *MultipartBody) ContentType() string {
	return "multipart/form-data; boundary=" + b.boundary
}

// ContentLength is the exact number of bytes [MultipartBody.Reader] will produce.
func (b *MultipartBody) ContentLength() int64 {
	return b.length
}

// Reader streams the body through an [io.Pipe]. Closing the reader stops the writer.
func (b *MultipartBody) Reader(ctx context.Context) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		err := b.encode(pw, false)
		if err == nil {
			err = ctx.Err()
		}
		pw.CloseWithError(err)
	}()
	return pr
}

// WriteTo writes the full body to w.
func (b *MultipartBody) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := b.encode(cw, false)
	return cw.n, err
}

// encode writes every part. In measure mode file contents are counted, not read.
func (b *MultipartBody) encode(w io.Writer, measure bool) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(b.boundary); err != nil {
		return err
	}

	for _, field := range b.fields {
		if field.File == nil {
			if err := mw.WriteField(field.Name, field.Value); err != nil {
				return fmt.Errorf("failed to write field %s: %w", field.Name, err)
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(field.Name), quoteEscaper.Replace(field.File.Name)))
		contentType := field.File.MIMEType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("failed to create part %s: %w", field.Name, err)
		}

		if measure {
			cw, ok := w.(*countingWriter)
			if !ok {
				return fmt.Errorf("measure mode needs a counting writer")
			}
			cw.n += field.File.Size
			continue
		}

		if err := copyFile(part, field.File); err != nil {
			return fmt.Errorf("failed to write file %s: %w", field.Name, err)
		}
	}

	return mw.Close()
}

// copyFile writes exactly h.Size bytes, failing if the file changed since it was attached.
func copyFile(w io.Writer, h *models.FileHandle) error {
	rc, err := h.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	n, err := io.CopyN(w, rc, h.Size)
	if err != nil {
		return fmt.Errorf("%s changed size (%d of %d bytes): %w", h.Name, n, h.Size, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.w == nil {
		c.n += int64(len(p))
		return len(p), nil
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// EncodeJSON serialises form state for JSON flows, dropping the same empty
// values multipart does. File fields are rejected.
func EncodeJSON(f models.FormState) ([]byte, error) {
	clean, err := compactValue(map[string]any(f))
	if err != nil {
		return nil, err
	}
	if clean == nil {
		clean = map[string]any{}
	}
	return json.Marshal(clean)
}

func compactValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *models.FileHandle:
		return nil, fmt.Errorf("file %s cannot be sent as JSON", val.Name)
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return val, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			c, err := compactValue(inner)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			if c != nil {
				out[k] = c
			}
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(val))
		for i, inner := range val {
			c, err := compactValue(inner)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			if c != nil {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	}
	return v, nil
}
