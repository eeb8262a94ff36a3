package request

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValuesLookup(t *testing.T) {
	v := &Values{
		Query: url.Values{"q": {"search"}},
		Body:  url.Values{"tags": {"a", "b"}, "name": {"alice"}},
	}

	if val, ok := v.Lookup(Query, "q"); !ok || val != "search" {
		t.Fatalf("Unexpected query value: %v (found: %t)", val, ok)
	}
	if _, ok := v.Lookup(Body, "q"); ok {
		t.Fatal("Query key found in body channel")
	}
	val, ok := v.Lookup(Body, "tags")
	if !ok {
		t.Fatal("Repeated body value not found")
	}
	if diff := cmp.Diff([]string{"a", "b"}, val); diff != "" {
		t.Fatalf("Unexpected repeated value (-want +got):\n%s", diff)
	}
	if _, ok := v.Lookup(Files, "name"); ok {
		t.Fatal("Value found in nil files channel")
	}
	if _, ok := v.Lookup(Channel(42), "name"); ok {
		t.Fatal("Value found in unknown channel")
	}

	// returned slices are copies
	val.([]string)[0] = "changed"
	if v.Body["tags"][0] != "a" {
		t.Fatal("Lookup returned the backing slice")
	}
}

func TestString(t *testing.T) {
	v := &Values{
		Body:  url.Values{"tags": {"a", "b"}},
		Files: map[string][]*multipart.FileHeader{"upload": {{Filename: "data.csv"}}},
	}
	if s, _ := String(v, Body, "tags"); s != "a" {
		t.Fatalf("Unexpected first value: %q", s)
	}
	if s, _ := String(v, Files, "upload"); s != "data.csv" {
		t.Fatalf("Unexpected file name: %q", s)
	}
	if _, ok := String(v, Query, "tags"); ok {
		t.Fatal("Missing value reported as found")
	}
}

func TestFromHTTPURLEncoded(t *testing.T) {
	req := httptest.NewRequest("POST", "/?event=login", strings.NewReader("username=alice&event=other"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	v, err := FromHTTP(req, 1<<20)
	if err != nil {
		t.Fatalf("Failed to read request: %v", err)
	}
	if s, _ := String(v, Query, EventKey); s != "login" {
		t.Fatalf("Unexpected query event: %q", s)
	}
	if s, _ := String(v, Body, EventKey); s != "other" {
		t.Fatalf("Unexpected body event: %q", s)
	}
	if s, _ := String(v, Body, "username"); s != "alice" {
		t.Fatalf("Unexpected username: %q", s)
	}
}

func TestFromHTTPMultipart(t *testing.T) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	if err := mw.WriteField("title", "report"); err != nil {
		t.Fatalf("Failed to write multipart field: %v", err)
	}
	fw, err := mw.CreateFormFile("attachment", "report.txt")
	if err != nil {
		t.Fatalf("Failed to create multipart file: %v", err)
	}
	fw.Write([]byte("contents"))
	mw.Close()

	req, err := http.NewRequest("POST", "/", body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	v, err := FromHTTP(req, 1<<20)
	if err != nil {
		t.Fatalf("Failed to read multipart request: %v", err)
	}
	if s, _ := String(v, Body, "title"); s != "report" {
		t.Fatalf("Unexpected title: %q", s)
	}
	val, ok := v.Lookup(Files, "attachment")
	if !ok {
		t.Fatal("Uploaded file not found")
	}
	if fh, ok := val.(*multipart.FileHeader); !ok || fh.Filename != "report.txt" {
		t.Fatalf("Unexpected file value: %+v", val)
	}
}
