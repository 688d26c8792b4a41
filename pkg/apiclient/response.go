package apiclient

import (
	"net/http"

	"github.com/tidwall/gjson"
)

// Response is a successful upstream response body.
type Response struct {
	status int
	body   []byte
	header http.Header
}

// Static wraps a literal JSON document as a Response. Aggregate fallbacks
// use it to stand in for a failed call.
func Static(raw string) *Response {
	return &Response{status: http.StatusOK, body: []byte(raw)}
}

func (r *Response) Status() int {
	return r.status
}

func (r *Response) Header() http.Header {
	return r.header
}

// Raw returns the body bytes.
func (r *Response) Raw() []byte {
	return r.body
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.body)
}

// Result parses the whole body.
func (r *Response) Result() gjson.Result {
	return gjson.ParseBytes(r.body)
}

// Get evaluates a gjson path against the body.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.body, path)
}

// Array returns the elements at path, or none when path is absent.
func (r *Response) Array(path string) []gjson.Result {
	return r.Get(path).Array()
}
