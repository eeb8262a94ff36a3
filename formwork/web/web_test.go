package web

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestWebPlain(t *testing.T) {
	srv := New(4242)

	srv.Start()
	defer srv.Stop()
}

func TestWebWithRoutes(t *testing.T) {
	srv := New(4243)

	router := srv.Router
	router.StrictSlash(true)

	testget := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("(get) hello"))
	}

	testpost := func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			t.Fatalf("Post request handler failed to read form data: %v", err.Error())
		}
		resp := r.PostForm.Get("response")
		w.Write([]byte(fmt.Sprintf("(post) hello: %s", resp)))
	}

	router.HandleFunc("/test", testget).Methods("GET")
	router.HandleFunc("/test", testpost).Methods("POST")

	srv.Start()
	defer srv.Stop()
	time.Sleep(50 * time.Millisecond) // let the listener come up

	if resp, err := http.Get("http://localhost:4243/test"); err != nil {
		t.Fatalf("Error testing get request: %v", err.Error())
	} else if b, err := ioutil.ReadAll(resp.Body); err != nil {
		t.Fatalf("Error reading get request body: %v", err.Error())
	} else if string(b) != "(get) hello" {
		t.Fatalf("Got unexpected response from get request: %s", string(b))
	}

	if resp, err := http.PostForm("http://localhost:4243/test", url.Values{"response": {"formvalue"}}); err != nil {
		t.Fatalf("Error testing post request: %v", err.Error())
	} else if b, err := ioutil.ReadAll(resp.Body); err != nil {
		t.Fatalf("Error reading post request body: %v", err.Error())
	} else if string(b) != "(post) hello: formvalue" {
		t.Fatalf("Got unexpected response from post request: %s", string(b))
	}
}

func TestErrorResponse(t *testing.T) {
	srv := New(4244)
	logbuf := new(bytes.Buffer)
	srv.SetLogger(log.New(logbuf, "", 0))

	expresp := "TESTING:UNAUTHORISED"
	srv.Router.HandleFunc("/test", func(w http.ResponseWriter, r *http.Request) {
		srv.ErrorResponse(w, http.StatusUnauthorized, expresp)
	}).Methods("GET")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Unexpected status code: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), expresp) {
		t.Fatalf("Got unexpected response from get request: %s", rr.Body.String())
	}
	if !strings.Contains(logbuf.String(), "[401] "+expresp) {
		t.Fatalf("Error not logged: %q", logbuf.String())
	}
}
