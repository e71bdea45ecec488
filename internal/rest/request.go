// Package rest performs single HTTP round trips against the task backend.
//
// A Request is a plain value with a fully buffered body so the pipeline can
// replay it after a credential refresh. Responses are checked with
// googleapi.CheckResponse and failures are classified into apierr kinds.
package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
)

// Request describes one call. It is never mutated by Client.Do, so the same
// value can be dispatched again.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string

	// Anonymous requests never carry the bearer credential (login and refresh).
	Anonymous bool
}

// Op returns "METHOD /path" for logs and errors.
func (r *Request) Op() string {
	return r.Method + " " + r.Path
}

// NewRequest builds a request without a body.
func NewRequest(method, path string, query url.Values) *Request {
	return &Request{Method: method, Path: path, Query: query}
}

// NewJSONRequest builds a request with v encoded as the JSON body.
func NewJSONRequest(method, path string, v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return &Request{
		Method:      method,
		Path:        path,
		Body:        body,
		ContentType: "application/json",
	}, nil
}

// File is one multipart file part.
type File struct {
	Field string
	Name  string
	Data  []byte
}

// NewMultipartRequest builds a multipart/form-data request. Fields are
// written in the order given.
func NewMultipartRequest(method, path string, fields [][2]string, files ...File) (*Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("failed to encode form field %s: %w", field[0], err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.Field, file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode file %s: %w", file.Name, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("failed to encode file %s: %w", file.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode form: %w", err)
	}

	return &Request{
		Method:      method,
		Path:        path,
		Body:        buf.Bytes(),
		ContentType: writer.FormDataContentType(),
	}, nil
}
