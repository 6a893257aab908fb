package httpclient

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"mime/multipart"
	"strings"
)

// FormData is a multipart/form-data body. Files are held in memory so that every
// retry can re-encode the same body.
type FormData struct {
	parts []formPart
}

type formPart struct {
	name     string
	value    string
	filename string
	content  []byte
	isFile   bool
}

// NewFormData creates an empty form.
func NewFormData() *FormData {
	return &FormData{}
}

// Set appends a plain field.
func (f *FormData) Set(name, value string) *FormData {
	f.parts = append(f.parts, formPart{name: name, value: value})
	return f
}

// AddFile appends a file part.
func (f *FormData) AddFile(name, filename string, content []byte) *FormData {
	f.parts = append(f.parts, formPart{name: name, filename: filename, content: content, isFile: true})
	return f
}

// Len returns the number of parts.
func (f *FormData) Len() int { return len(f.parts) }

// encode renders the form and returns the body with its boundary content type.
func (f *FormData) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range f.parts {
		if !p.isFile {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", p.name, err)
			}
			continue
		}
		part, err := w.CreateFormFile(p.name, p.filename)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", p.name, err)
		}
		if _, err := part.Write(p.content); err != nil {
			return nil, "", fmt.Errorf("write file part %s: %w", p.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// keyPart is a stable description of the form used in cache and de-dup keys.
// The boundary is random per encode, so the encoded body cannot be used.
func (f *FormData) keyPart() string {
	var b strings.Builder
	b.WriteString("form{")
	for i, p := range f.parts {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.name)
		b.WriteByte('=')
		if p.isFile {
			fmt.Fprintf(&b, "file:%s:%d:%x", p.filename, len(p.content), sha256.Sum256(p.content))
		} else {
			b.WriteString(p.value)
		}
	}
	b.WriteByte('}')
	return b.String()
}
