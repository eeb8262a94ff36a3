package formwork

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/G-Node/formwork/formwork/form"
	"github.com/G-Node/formwork/formwork/validator"
	"golang.org/x/net/html"
)

// findInputValue returns the value of the first input element with the given
// name in the document.
func findInputValue(n *html.Node, name string) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "input" {
		var elemName, value string
		for _, attr := range n.Attr {
			switch attr.Key {
			case "name":
				elemName = attr.Val
			case "value":
				value = attr.Val
			}
		}
		if elemName == name {
			return value, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v, ok := findInputValue(c, name); ok {
			return v, ok
		}
	}
	return "", false
}

// loadForm requests the form page and returns the session cookie and the
// CSRF token it was issued with.
func loadForm(t *testing.T, handler http.Handler, formID string) (*http.Cookie, string) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v expected %v", status, http.StatusOK)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "test-cookie" {
		t.Fatalf("Unexpected cookies set by form page: %+v", cookies)
	}

	doc, err := html.Parse(rr.Body)
	if err != nil {
		t.Fatalf("Bad HTML when rendering form page: %v", err)
	}
	if marker, ok := findInputValue(doc, "event"); !ok || marker != formID {
		t.Fatalf("Form page carries no submission marker: %q", marker)
	}
	token, ok := findInputValue(doc, "csrf_token")
	if !ok || token == "" {
		t.Fatal("Form page carries no CSRF token")
	}
	return cookies[0], token
}

func postForm(handler http.Handler, cookie *http.Cookie, values url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	handler.ServeHTTP(rr, req)
	return rr
}

func getForm(handler http.Handler, cookie *http.Cookie, values url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/?"+values.Encode(), nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	handler.ServeHTTP(rr, req)
	return rr
}

func getPage(t *testing.T, handler http.Handler, route string, expStatus int) string {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", route, nil)
	handler.ServeHTTP(rr, req)
	if status := rr.Code; status != expStatus {
		t.Fatalf("handler returned wrong status code for %s: got %v expected %v", route, status, expStatus)
	}
	content, err := ioutil.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %s", err.Error())
	}
	return string(content)
}

func TestFormRoutes(t *testing.T) {
	srv, cleanup := newTestService(t, 4253)
	defer cleanup()
	handler := srv.web.Handler

	cookie, token := loadForm(t, handler, "contact")

	rr := postForm(handler, cookie, url.Values{
		"event":      {"contact"},
		"csrf_token": {token},
		"name":       {"alice"},
		"message":    {"hello"},
		"send":       {"send"},
	})
	if status := rr.Code; status != http.StatusSeeOther {
		t.Fatalf("handler returned wrong status code: got %v expected %v: %s", status, http.StatusSeeOther, rr.Body.String())
	}

	subs, err := srv.db.AllSubmissions()
	if err != nil {
		t.Fatalf("Failed to read submissions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("Unexpected number of submissions: %d", len(subs))
	}
	sub := subs[0]
	if sub.FormID != "contact" || sub.ValueMap["name"] != "alice" || sub.ValueMap["message"] != "hello" {
		t.Fatalf("Unexpected submission stored: %+v", sub)
	}
	if sub.SessionID != cookie.Value {
		t.Fatalf("Submission not linked to session: %q (expected %q)", sub.SessionID, cookie.Value)
	}

	logPage := getPage(t, handler, "/log", http.StatusOK)
	if !strings.Contains(logPage, `href="/log/1"`) {
		t.Fatalf("Submission missing from log page: %s", logPage)
	}
	subPage := getPage(t, handler, "/log/1", http.StatusOK)
	if !strings.Contains(subPage, "alice") || !strings.Contains(subPage, "In queue") {
		t.Fatalf("Unexpected submission page: %s", subPage)
	}
	getPage(t, handler, "/log/1337", http.StatusNotFound)

	formLog := getPage(t, handler, "/log?form=contact", http.StatusOK)
	if !strings.Contains(formLog, `href="/log/1"`) {
		t.Fatalf("Submission missing from form log page: %s", formLog)
	}
	otherLog := getPage(t, handler, "/log?form=search", http.StatusOK)
	if strings.Contains(otherLog, `href="/log/1"`) {
		t.Fatalf("Submission of another form shown in form log page: %s", otherLog)
	}
}

func TestFormRoutesRejected(t *testing.T) {
	srv, cleanup := newTestService(t, 4254)
	defer cleanup()
	handler := srv.web.Handler

	cookie, token := loadForm(t, handler, "contact")

	// forged token
	rr := postForm(handler, cookie, url.Values{"event": {"contact"}, "csrf_token": {"forged"}, "name": {"alice"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Forged token: wrong status code: got %v expected %v", rr.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rr.Body.String(), "CSRF validation failed") {
		t.Fatal("Forged token: CSRF error not shown")
	}

	// the rejected page issued a new token
	doc, err := html.Parse(rr.Body)
	if err != nil {
		t.Fatalf("Bad HTML on rejected form page: %v", err)
	}
	newToken, _ := findInputValue(doc, "csrf_token")
	if newToken == "" || newToken == token {
		t.Fatalf("Rejected form page did not issue a new token: %q", newToken)
	}
	if name, _ := findInputValue(doc, "name"); name != "alice" {
		t.Fatalf("Rejected form page lost the submitted value: %q", name)
	}

	// failing field validation
	rr = postForm(handler, cookie, url.Values{"event": {"contact"}, "csrf_token": {newToken}, "name": {" "}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Empty name: wrong status code: got %v expected %v", rr.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rr.Body.String(), "This field is required") {
		t.Fatal("Empty name: field error not shown")
	}

	// missing required value
	rr = postForm(handler, cookie, url.Values{"event": {"contact"}, "csrf_token": {"x"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Missing value: wrong status code: got %v expected %v", rr.Code, http.StatusBadRequest)
	}

	// not submitted
	rr = postForm(handler, cookie, url.Values{"name": {"alice"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Unsubmitted form: wrong status code: got %v expected %v", rr.Code, http.StatusBadRequest)
	}

	if subs, _ := srv.db.AllSubmissions(); len(subs) != 0 {
		t.Fatalf("Rejected submissions stored: %+v", subs)
	}

	metricsPage := getPage(t, handler, "/metrics", http.StatusOK)
	for _, line := range []string{
		`formwork_submissions_total{form="contact",outcome="csrf_failed"} 1`,
		`formwork_submissions_total{form="contact",outcome="invalid"} 1`,
		`formwork_submissions_total{form="contact",outcome="error"} 1`,
		`formwork_submissions_total{form="contact",outcome="not_submitted"} 1`,
		`formwork_form_renders_total{form="contact"} 3`,
	} {
		if !strings.Contains(metricsPage, line) {
			t.Fatalf("Metric %q not found:\n%s", line, metricsPage)
		}
	}
}

func searchForm(env form.Env) (*form.Form, error) {
	f, err := form.New("search", form.MethodGet, true, env)
	if err != nil {
		return nil, err
	}
	q := form.NewElement("q", form.SearchInput)
	q.SetValidator(validator.Required(""))
	if err := f.AttachField("q", q); err != nil {
		return nil, err
	}
	return f, nil
}

func TestGetFormRoutes(t *testing.T) {
	config, cleanup := testConfig(t, 4256)
	srv, cleanup := startTestService(t, searchForm, config, cleanup)
	defer cleanup()
	handler := srv.web.Handler

	cookie, token := loadForm(t, handler, "search")

	rr := getForm(handler, cookie, url.Values{"event": {"search"}, "csrf_token": {token}, "q": {""}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Empty query: wrong status code: got %v expected %v", rr.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rr.Body.String(), "This field is required") {
		t.Fatal("Empty query: field error not shown")
	}

	rr = getForm(handler, cookie, url.Values{"event": {"search"}, "csrf_token": {"forged"}, "q": {"hello"}})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "CSRF validation failed") {
		t.Fatalf("Forged token in query accepted: %v", rr.Code)
	}
	doc, err := html.Parse(rr.Body)
	if err != nil {
		t.Fatalf("Bad HTML on rejected form page: %v", err)
	}
	newToken, _ := findInputValue(doc, "csrf_token")

	if subs, _ := srv.db.AllSubmissions(); len(subs) != 0 {
		t.Fatalf("Rejected submissions stored: %+v", subs)
	}

	rr = getForm(handler, cookie, url.Values{"event": {"search"}, "csrf_token": {newToken}, "q": {"hello"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Valid query: wrong status code: got %v expected %v: %s", rr.Code, http.StatusSeeOther, rr.Body.String())
	}
	subs, err := srv.db.AllSubmissions()
	if err != nil {
		t.Fatalf("Failed to read submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].FormID != "search" || subs[0].ValueMap["q"] != "hello" {
		t.Fatalf("Unexpected submissions stored: %+v", subs)
	}

	// other query parameters do not submit the form
	rr = getForm(handler, cookie, url.Values{"q": {"hello"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("Unsubmitted form: wrong status code: got %v expected %v", rr.Code, http.StatusOK)
	}
}

func TestBoltSessionRoutes(t *testing.T) {
	config, cleanup := testConfig(t, 4257)
	tmpdir, err := ioutil.TempDir("", "formwork-sessions")
	if err != nil {
		cleanup()
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(tmpdir)
	config.SessionBackend = BoltSessions
	config.BoltPath = filepath.Join(tmpdir, "sessions.db")

	srv, cleanup := startTestService(t, contactForm, config, cleanup)
	defer cleanup()
	handler := srv.web.Handler

	cookie, token := loadForm(t, handler, "contact")
	if _, err := srv.db.GetSession(cookie.Value); err == nil {
		t.Fatal("Bolt session stored in service database")
	}

	rr := postForm(handler, cookie, url.Values{"event": {"contact"}, "csrf_token": {"forged"}, "name": {"alice"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Forged token: wrong status code: got %v expected %v", rr.Code, http.StatusUnprocessableEntity)
	}
	doc, err := html.Parse(rr.Body)
	if err != nil {
		t.Fatalf("Bad HTML on rejected form page: %v", err)
	}
	newToken, _ := findInputValue(doc, "csrf_token")
	if newToken == "" || newToken == token {
		t.Fatal("Rejected form page did not issue a new token")
	}

	rr = postForm(handler, cookie, url.Values{"event": {"contact"}, "csrf_token": {newToken}, "name": {"alice"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("handler returned wrong status code: got %v expected %v: %s", rr.Code, http.StatusSeeOther, rr.Body.String())
	}
	subs, err := srv.db.AllSubmissions()
	if err != nil {
		t.Fatalf("Failed to read submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].SessionID != cookie.Value {
		t.Fatalf("Submission not linked to bolt session %q: %+v", cookie.Value, subs)
	}
}

func TestFormRoutesQueueFull(t *testing.T) {
	config, cleanup := testConfig(t, 4258)
	config.QueueLength = 1
	srv, cleanup := startTestService(t, contactForm, config, cleanup)
	defer cleanup()
	handler := srv.web.Handler

	cookie, token := loadForm(t, handler, "contact")
	values := url.Values{"event": {"contact"}, "csrf_token": {token}, "name": {"alice"}}

	// worker not started: the first submission fills the queue
	if rr := postForm(handler, cookie, values); rr.Code != http.StatusSeeOther {
		t.Fatalf("First submission: wrong status code: got %v expected %v", rr.Code, http.StatusSeeOther)
	}
	if rr := postForm(handler, cookie, values); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Submission on full queue: wrong status code: got %v expected %v", rr.Code, http.StatusServiceUnavailable)
	}

	metricsPage := getPage(t, handler, "/metrics", http.StatusOK)
	if line := `formwork_submissions_total{form="contact",outcome="rejected"} 1`; !strings.Contains(metricsPage, line) {
		t.Fatalf("Metric %q not found:\n%s", line, metricsPage)
	}
}
