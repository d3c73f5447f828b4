package models

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// FormState is the in-memory record of every field a wizard session edits.
//
// Values are strings, numbers (int, int64, float64), bools, [*FileHandle],
// nested groups (map[string]any) or lists ([]any of scalars or groups).
// Dotted paths address nested values: "credits.director", "judging_criteria.0.weight".
type FormState map[string]any

// NewFormState returns an empty FormState.
func NewFormState() FormState {
	return FormState{}
}

// Set stores v under field. A dotted field is treated as a path, see [FormState.SetPath].
func (f FormState) Set(field string, v any) {
	if strings.Contains(field, ".") {
		f.SetPath(field, v)
		return
	}
	f[field] = v
}

// SetPath stores v at a dotted path, creating intermediate groups as needed.
// Numeric segments index into lists, growing them with empty groups.
func (f FormState) SetPath(path string, v any) {
	parts := strings.Split(path, ".")
	f[parts[0]] = setIn(f[parts[0]], parts[1:], v)
}

func setIn(container any, parts []string, v any) any {
	if len(parts) == 0 {
		return v
	}

	if idx, err := strconv.Atoi(parts[0]); err == nil && idx >= 0 {
		list, _ := container.([]any)
		for len(list) <= idx {
			list = append(list, map[string]any{})
		}
		list[idx] = setIn(list[idx], parts[1:], v)
		return list
	}

	group, ok := container.(map[string]any)
	if !ok {
		group = map[string]any{}
	}
	group[parts[0]] = setIn(group[parts[0]], parts[1:], v)
	return group
}

// Get returns the value at field (or dotted path) and whether it exists.
func (f FormState) Get(field string) (any, bool) {
	parts := strings.Split(field, ".")
	cur, ok := f[parts[0]]
	if !ok {
		return nil, false
	}

	for _, part := range parts[1:] {
		switch c := cur.(type) {
		case map[string]any:
			if cur, ok = c[part]; !ok {
				return nil, false
			}
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Delete removes a top-level field.
func (f FormState) Delete(field string) {
	delete(f, field)
}

// String returns the trimmed string form of a scalar field, or "".
func (f FormState) String(field string) string {
	v, ok := f.Get(field)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case bool, int, int64, float64:
		return ScalarString(val)
	}
	return ""
}

// Bool reports a boolean field. Strings "1", "true", "yes" and "on" count as true.
func (f FormState) Bool(field string) bool {
	v, _ := f.Get(field)
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "true", "yes", "on":
			return true
		}
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	return false
}

// Number returns a numeric field as float64. Numeric strings are parsed.
func (f FormState) Number(field string) (float64, bool) {
	v, _ := f.Get(field)
	return toNumber(v)
}

func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// File returns the attached file for field, or nil.
func (f FormState) File(field string) *FileHandle {
	v, _ := f.Get(field)
	h, _ := v.(*FileHandle)
	return h
}

// Group returns a nested group field, or nil.
func (f FormState) Group(field string) map[string]any {
	v, _ := f.Get(field)
	g, _ := v.(map[string]any)
	return g
}

// List returns a list field, or nil.
func (f FormState) List(field string) []any {
	v, _ := f.Get(field)
	l, _ := v.([]any)
	return l
}

// Clear removes every field.
func (f FormState) Clear() {
	clear(f)
}

// Keys returns the top-level field names in sorted order.
func (f FormState) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a deep copy of groups and lists. File handles are shared.
func (f FormState) Clone() FormState {
	out := make(FormState, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		l := make([]any, len(val))
		for i, inner := range val {
			l[i] = cloneValue(inner)
		}
		return l
	}
	return v
}

// ScalarString renders a scalar the way the marketplace expects form values.
// Booleans become "1"/"0"; whole floats drop their fraction.
func ScalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// knownTypes covers media extensions missing from the platform MIME table.
var knownTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// FileHandle references a local file attached to a form field.
type FileHandle struct {
	Path     string
	Name     string
	Size     int64
	MIMEType string

	open func() (io.ReadCloser, error)
}

// NewFileHandle stats the file at path and detects its MIME type from the
// extension, falling back to content sniffing.
func NewFileHandle(path string) (*FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	h := &FileHandle{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
	}

	h.MIMEType = DetectMIMEType(h.Name, nil)
	if h.MIMEType == "application/octet-stream" {
		if sniffed, err := sniffFile(path); err == nil {
			h.MIMEType = sniffed
		}
	}

	return h, nil
}

// NewMemoryFile builds a FileHandle over an in-memory payload.
func NewMemoryFile(name, mimeType string, data []byte) *FileHandle {
	if mimeType == "" {
		mimeType = DetectMIMEType(name, data)
	}
	return &FileHandle{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Open returns a reader over the file's contents. Callers must close it.
func (h *FileHandle) Open() (io.ReadCloser, error) {
	if h.open != nil {
		return h.open()
	}
	f, err := os.Open(h.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", h.Name, err)
	}
	return f, nil
}

// DetectMIMEType resolves a MIME type from the file name, then from head when provided.
func DetectMIMEType(name string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
		return t
	}
	if len(head) > 0 {
		mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head))
		return mediaType
	}
	return "application/octet-stream"
}

func sniffFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mediaType, nil
}
