package httpclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Form is a multipart/form-data request body.
//
// A Form set with RequestBuilder.SetBody is sent as-is: it is not JSON
// encoded, and the multipart boundary content type replaces the request's
// Content-Type header. Entries keep their insertion order.
//
// Example:
//
//	form := httpclient.NewForm().
//	    Append("title", "Q4 Report").
//	    AppendFilePath("document", "/path/to/report.pdf")
//
//	resp, err := client.Post("/documents").SetBody(form).Execute(ctx)
type Form struct {
	entries []FormEntry
}

// FormEntry is a single field or file part of a Form.
type FormEntry struct {
	// Name is the form field name.
	Name string

	// Value is the field value. Empty for file parts.
	Value string

	// FileName is set for file parts.
	FileName string

	// Reader provides the content of a file part.
	Reader io.Reader
}

// IsFile reports whether the entry is a file part.
func (e FormEntry) IsFile() bool {
	return e.Reader != nil
}

// NewForm creates an empty Form.
func NewForm() *Form {
	return &Form{}
}

// Append adds a text field.
func (f *Form) Append(name, value string) *Form {
	f.entries = append(f.entries, FormEntry{Name: name, Value: value})
	return f
}

// AppendFile adds a file part read from r.
//
// The reader is consumed when the request is sent, so a Form carrying
// file parts can only be sent once.
func (f *Form) AppendFile(name, fileName string, r io.Reader) *Form {
	f.entries = append(f.entries, FormEntry{Name: name, FileName: fileName, Reader: r})
	return f
}

// AppendFilePath adds a file part read from path. The file is opened when
// the request is sent; a missing file fails the execution.
func (f *Form) AppendFilePath(name, path string) *Form {
	return f.AppendFile(name, filepath.Base(path), &lazyFileReader{path: path})
}

// Entries returns the entries in insertion order.
func (f *Form) Entries() []FormEntry {
	return append([]FormEntry(nil), f.entries...)
}

// Get returns the value of the first text field named name.
func (f *Form) Get(name string) string {
	for _, e := range f.entries {
		if e.Name == name && !e.IsFile() {
			return e.Value
		}
	}
	return ""
}

// encode writes the form as multipart/form-data and returns the body
// together with its boundary content type.
func (f *Form) encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, entry := range f.entries {
		if !entry.IsFile() {
			if err := writer.WriteField(entry.Name, entry.Value); err != nil {
				return nil, "", err
			}
			continue
		}

		if err := writeFilePart(writer, entry); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, entry FormEntry) error {
	reader := entry.Reader
	if lazy, ok := reader.(*lazyFileReader); ok {
		f, err := os.Open(lazy.path)
		if err != nil {
			return err
		}
		defer f.Close()
		reader = f
	}

	part, err := writer.CreateFormFile(entry.Name, entry.FileName)
	if err != nil {
		return err
	}

	_, err = io.Copy(part, reader)
	return err
}

// lazyFileReader defers file opening until the request is sent.
type lazyFileReader struct {
	path string
}

func (l *lazyFileReader) Read(_ []byte) (int, error) {
	// encode opens the file; this is never read directly.
	return 0, io.EOF
}
