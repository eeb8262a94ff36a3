package formwork

import (
	"errors"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/G-Node/formwork/formwork/db"
	"github.com/G-Node/formwork/formwork/dom"
	"github.com/G-Node/formwork/formwork/form"
	"github.com/G-Node/formwork/formwork/request"
	"github.com/G-Node/formwork/formwork/session"
	"github.com/G-Node/formwork/formwork/worker"
	"github.com/G-Node/formwork/templates"
	"github.com/gorilla/mux"
)

// formPage is the template data of the form page.
type formPage struct {
	Title       string
	Description string
	Form        template.HTML
	Errors      []string
	FieldErrors map[string][]string
}

// setupWebRoutes sets up the routes of the service.
//
// Form (render and submit), submission log, and metrics pages
func (srv *Service) setupWebRoutes() {
	router := srv.web.Router
	router.StrictSlash(true)

	router.HandleFunc("/", srv.renderForm).Methods("GET")
	router.HandleFunc("/", srv.processForm).Methods("POST")
	router.HandleFunc("/log", srv.renderLog).Methods("GET")
	router.HandleFunc("/log/{id:[0-9]+}", srv.showSubmission).Methods("GET")
	router.Handle("/metrics", srv.metrics.handler()).Methods("GET")

	router.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.Dir("./assets"))))
}

// sessionStore is the cookie bound session of a single request.
type sessionStore interface {
	session.Store
	ID() string
}

// newEnv binds the request and the session of the caller to a form
// environment.
func (srv *Service) newEnv(w http.ResponseWriter, r *http.Request) (form.Env, sessionStore, error) {
	req, err := request.FromHTTP(r, srv.Config.MaxUploadMemory)
	if err != nil {
		return form.Env{}, nil, err
	}
	maxAge := time.Duration(srv.Config.SessionHours) * time.Hour
	var store sessionStore
	if srv.sessions != nil {
		store, err = session.BoltFromRequest(srv.sessions, w, r, srv.Config.CookieName, maxAge)
	} else {
		store, err = session.FromRequest(srv.db, w, r, srv.Config.CookieName, maxAge)
	}
	if err != nil {
		return form.Env{}, nil, err
	}
	return form.Env{Request: req, Session: store}, store, nil
}

// renderForm shows the form.  Forms submitted with the GET method arrive
// here as well and are processed like POST submissions.
func (srv *Service) renderForm(w http.ResponseWriter, r *http.Request) {
	env, store, err := srv.newEnv(w, r)
	if err != nil {
		srv.log.Printf("Failed to read request: %v", err)
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read request")
		return
	}
	f, err := srv.build(env)
	if err != nil {
		srv.log.Printf("Failed to build form: %v", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to build form")
		return
	}
	if f.Method() == form.MethodGet && f.IsSubmitted() {
		srv.submit(w, r, f, store)
		return
	}
	srv.writeForm(w, http.StatusOK, f)
}

// writeForm renders the form into the page template.  Rendering issues a new
// CSRF token, which may start a session and set its cookie, so it has to
// happen before the response header is written.
func (srv *Service) writeForm(w http.ResponseWriter, status int, f *form.Form) {
	node := dom.NewElement("form")
	node.SetAttribute("action", "/")
	node.SetAttribute("enctype", "multipart/form-data")
	if _, err := f.Render(node); err != nil {
		srv.log.Printf("Failed to render form %q: %v", f.ID(), err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to render form")
		return
	}
	srv.metrics.renders.WithLabelValues(f.ID()).Inc()

	tmpl := template.New("layout")
	tmpl, err := tmpl.Parse(templates.Layout)
	checkError(err)
	tmpl, err = tmpl.Parse(templates.Form)
	checkError(err)

	data := formPage{
		Title:       srv.Config.Title,
		Description: srv.Config.Description,
		Form:        template.HTML(dom.String(node)),
		Errors:      f.Errors(),
		FieldErrors: make(map[string][]string),
	}
	for _, fld := range f.Fields() {
		if errs := fld.Errors(); len(errs) > 0 {
			data.FieldErrors[fld.Name()] = errs
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		srv.log.Printf("Failed to render form page: %v", err)
	}
}

func (srv *Service) processForm(w http.ResponseWriter, r *http.Request) {
	env, store, err := srv.newEnv(w, r)
	if err != nil {
		srv.log.Printf("Failed to parse form: %v", err)
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read request")
		return
	}
	f, err := srv.build(env)
	if err != nil {
		srv.log.Printf("Failed to build form: %v", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to build form")
		return
	}

	if !f.IsSubmitted() {
		srv.metrics.submissions.WithLabelValues(f.ID(), outcomeNotSubmitted).Inc()
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Form was not submitted")
		return
	}
	srv.submit(w, r, f, store)
}

// submit validates a submitted form.  Invalid forms are shown again with
// their errors; valid submissions are queued for the worker.
func (srv *Service) submit(w http.ResponseWriter, r *http.Request, f *form.Form, store sessionStore) {
	valid, err := f.Validate()
	if err != nil {
		srv.metrics.submissions.WithLabelValues(f.ID(), outcomeError).Inc()
		srv.web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if !valid {
		outcome := outcomeInvalid
		for _, msg := range f.Errors() {
			if msg == form.CSRFError {
				outcome = outcomeCSRF
			}
		}
		srv.metrics.submissions.WithLabelValues(f.ID(), outcome).Inc()
		srv.writeForm(w, http.StatusUnprocessableEntity, f)
		return
	}

	values, err := submittedValues(f)
	if err != nil {
		srv.metrics.submissions.WithLabelValues(f.ID(), outcomeError).Inc()
		srv.web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	sub := &db.Submission{FormID: f.ID(), SessionID: store.ID(), ValueMap: values}
	if err := srv.worker.Enqueue(sub); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			srv.metrics.submissions.WithLabelValues(f.ID(), outcomeRejected).Inc()
			srv.web.ErrorResponse(w, http.StatusServiceUnavailable, "Too many submissions in queue, please try again later")
			return
		}
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to store submission")
		return
	}
	srv.metrics.submissions.WithLabelValues(f.ID(), outcomeAccepted).Inc()

	// redirect to submission log
	http.Redirect(w, r, "/log", http.StatusSeeOther)
}

// submittedValues returns the current values of all fields as strings.
// Values set by the form builder after submission take precedence over the
// raw request values.
func submittedValues(f *form.Form) (map[string]string, error) {
	values := make(map[string]string)
	for _, fld := range f.Fields() {
		v, err := fld.Value()
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		values[fld.Name()] = form.DisplayValue(v)
	}
	return values, nil
}

func (srv *Service) showSubmission(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	subid, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Invalid ID")
		return
	}
	sub, err := srv.db.GetSubmission(subid)
	if err != nil || sub == nil {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such submission")
		return
	}

	tmpl := template.New("layout")
	tmpl, err = tmpl.Parse(templates.Layout)
	checkError(err)
	tmpl, err = tmpl.Parse(templates.Submission)
	checkError(err)

	if err := tmpl.Execute(w, sub); err != nil {
		srv.log.Printf("Failed to render submission: %v", err)
	}
}

func (srv *Service) renderLog(w http.ResponseWriter, r *http.Request) {
	tmpl := template.New("layout")
	tmpl, err := tmpl.Parse(templates.Layout)
	checkError(err)
	tmpl, err = tmpl.Parse(templates.LogView)
	checkError(err)

	var sublog []db.Submission
	if formID := r.URL.Query().Get("form"); formID != "" {
		sublog, err = srv.db.FormSubmissions(formID)
	} else {
		sublog, err = srv.db.AllSubmissions()
	}
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Error reading submissions from DB")
		return
	}
	// newest first
	sort.Slice(sublog, func(i, j int) bool { return sublog[i].ID > sublog[j].ID })
	if err := tmpl.Execute(w, sublog); err != nil {
		srv.log.Printf("Failed to render log: %v", err)
	}
}

// checkError panics on template parse errors; the templates are compiled into
// the binary so a failure is a programming error.
func checkError(err error) {
	if err != nil {
		panic(err)
	}
}
