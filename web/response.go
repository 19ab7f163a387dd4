package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

// Response describes what to write back to the client. Handlers return it
// instead of writing to an http.ResponseWriter, so outer layers can still
// inspect and amend it after the handler returned.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	// Value is a payload left for an encoding layer such as EncodeJSON.
	// It is ignored when Body is set.
	Value any
}

// Text returns a text/plain response.
func Text(status int, s string) *Response {
	r := &Response{
		Status: status,
		Header: http.Header{},
		Body:   []byte(s),
	}
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return r
}

// JSON encodes v and returns an application/json response. Encoding errors
// are returned so the handler can report them as a fault.
func JSON(status int, v any) (*Response, error) {
	body, err := encodeJSON(v)
	if err != nil {
		return nil, err
	}

	r := &Response{
		Status: status,
		Header: http.Header{},
		Body:   body,
	}
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

// Value returns a 200 response carrying v for an encoding layer.
func Value(v any) *Response {
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{},
		Value:  v,
	}
}

// SetHeader sets a response header, allocating the header map if needed.
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set(key, value)
	return r
}

func (r *Response) write(w http.ResponseWriter) {
	for k, vv := range r.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	if len(r.Body) > 0 {
		w.Header().Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	w.WriteHeader(status)
	if len(r.Body) > 0 {
		w.Write(r.Body)
	}
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
