// Package request exposes the transport channels of a request (query
// parameters, body parameters and file uploads) to forms.
package request

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Channel identifies one transport area of a request.
type Channel int

const (
	// Query holds the URL query parameters (GET).
	Query Channel = iota
	// Body holds the url-encoded or multipart body parameters (POST).
	Body
	// Files holds multipart file uploads.
	Files
)

func (ch Channel) String() string {
	switch ch {
	case Query:
		return "query"
	case Body:
		return "body"
	case Files:
		return "files"
	}
	return fmt.Sprintf("channel(%d)", int(ch))
}

// Reserved keys carried by submitted forms.
const (
	EventKey = "event"
	CSRFKey  = "csrf_token"
)

// Source gives read access to the channels of the active request.
type Source interface {
	// Lookup returns the value stored under key in the given channel.  Single
	// parameter values are returned as string and repeated ones as []string.
	// Files are returned as *multipart.FileHeader or []*multipart.FileHeader.
	Lookup(ch Channel, key string) (interface{}, bool)
}

// Values is a Source backed by plain maps.  Any of the maps may be nil.
type Values struct {
	Query url.Values
	Body  url.Values
	Files map[string][]*multipart.FileHeader
}

// Lookup implements Source.
func (v *Values) Lookup(ch Channel, key string) (interface{}, bool) {
	switch ch {
	case Query:
		return lookupValues(v.Query, key)
	case Body:
		return lookupValues(v.Body, key)
	case Files:
		headers, ok := v.Files[key]
		if !ok || len(headers) == 0 {
			return nil, false
		}
		if len(headers) == 1 {
			return headers[0], true
		}
		cp := make([]*multipart.FileHeader, len(headers))
		copy(cp, headers)
		return cp, true
	}
	return nil, false
}

// String returns the first value stored under key in the given channel as a
// string.  File uploads yield their file name.
func String(src Source, ch Channel, key string) (string, bool) {
	val, ok := src.Lookup(ch, key)
	if !ok {
		return "", false
	}
	switch v := val.(type) {
	case string:
		return v, true
	case []string:
		return v[0], true
	case *multipart.FileHeader:
		return v.Filename, true
	case []*multipart.FileHeader:
		return v[0].Filename, true
	}
	return fmt.Sprint(val), true
}

func lookupValues(values url.Values, key string) (interface{}, bool) {
	vals, ok := values[key]
	if !ok || len(vals) == 0 {
		return nil, false
	}
	if len(vals) == 1 {
		return vals[0], true
	}
	cp := make([]string, len(vals))
	copy(cp, vals)
	return cp, true
}

// FromHTTP parses the query, body and multipart parts of r and returns them as
// Values.  Multipart bodies are parsed with the given memory limit.
func FromHTTP(r *http.Request, maxMemory int64) (*Values, error) {
	v := &Values{Query: r.URL.Query()}
	if err := r.ParseMultipartForm(maxMemory); err != nil && err != http.ErrNotMultipart {
		return nil, err
	}
	v.Body = r.PostForm
	if r.MultipartForm != nil {
		v.Files = r.MultipartForm.File
	}
	return v, nil
}
