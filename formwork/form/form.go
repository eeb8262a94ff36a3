// Package form implements request-bound web forms: submission detection,
// resolution of submitted values from the request channels, per-field
// validation and CSRF protection.
package form

import (
	"fmt"
	"reflect"

	"github.com/G-Node/formwork/formwork/csrf"
	"github.com/G-Node/formwork/formwork/dom"
	"github.com/G-Node/formwork/formwork/event"
	"github.com/G-Node/formwork/formwork/request"
	"github.com/G-Node/formwork/formwork/session"
)

// Method is the HTTP method a form is submitted with.
type Method string

const (
	MethodGet  Method = "get"
	MethodPost Method = "post"
)

// channel returns the request channel that carries the submission marker and
// the CSRF token of forms using this method.
func (m Method) channel() request.Channel {
	if m == MethodGet {
		return request.Query
	}
	return request.Body
}

// Env holds the request scoped collaborators of a form.
type Env struct {
	// Request gives access to the submitted values.
	Request request.Source
	// Session stores CSRF tokens between requests.  Required when CSRF
	// protection is enabled.
	Session session.Store
}

// Form is an ordered set of fields bound to the active request.
type Form struct {
	id          string
	method      Method
	csrfEnabled bool

	req   request.Source
	guard *csrf.Guard

	refs   []string
	fields map[string]Field
	names  map[string]string

	errors []string
	events event.Hooks
}

// New returns an empty form.  The method must be MethodGet or MethodPost.
func New(id string, method Method, csrfEnabled bool, env Env) (*Form, error) {
	if method != MethodGet && method != MethodPost {
		return nil, fmt.Errorf("%w: invalid method %q", ErrInvalidArgument, method)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty form ID", ErrInvalidArgument)
	}
	if env.Request == nil {
		return nil, fmt.Errorf("%w: nil request source", ErrInvalidArgument)
	}
	f := &Form{
		id:          id,
		method:      method,
		csrfEnabled: csrfEnabled,
		req:         env.Request,
		fields:      make(map[string]Field),
		names:       make(map[string]string),
	}
	if csrfEnabled {
		if env.Session == nil {
			return nil, fmt.Errorf("%w: CSRF protection requires a session store", ErrInvalidArgument)
		}
		f.guard = csrf.New(env.Session)
	}
	f.events.Register(event.Submit, f.IsSubmitted)
	return f, nil
}

func (f *Form) ID() string {
	return f.id
}

func (f *Form) Method() Method {
	return f.method
}

func (f *Form) CSRFEnabled() bool {
	return f.csrfEnabled
}

func (f *Form) Events() *event.Hooks {
	return &f.events
}

// AttachField links fld to the form and adds it under ref.  Field names and
// refs must be unique within a form and a field can only belong to one form.
func (f *Form) AttachField(ref string, fld Field) error {
	if fld == nil || isNilPointer(fld) || fld.base() == nil {
		return fmt.Errorf("%w: nil field", ErrInvalidArgument)
	}
	if ref == "" {
		return fmt.Errorf("%w: empty field reference", ErrInvalidArgument)
	}
	name := fld.Name()
	if name == "" {
		return fmt.Errorf("%w: field without a name", ErrInvalidArgument)
	}
	if _, ok := f.fields[ref]; ok {
		return fmt.Errorf("%w: duplicate field reference %q", ErrInvalidArgument, ref)
	}
	if _, ok := f.names[name]; ok {
		return fmt.Errorf("%w: duplicate field name %q", ErrInvalidArgument, name)
	}
	if owner := fld.Form(); owner != nil {
		return fmt.Errorf("%w: field %q already belongs to form %q", ErrInvalidArgument, name, owner.id)
	}

	fld.setForm(f)
	f.refs = append(f.refs, ref)
	f.fields[ref] = fld
	f.names[name] = ref
	return nil
}

func isNilPointer(v interface{}) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// Field returns the field attached under ref.
func (f *Form) Field(ref string) (Field, bool) {
	fld, ok := f.fields[ref]
	return fld, ok
}

// Fields returns the attached fields in the order they were attached.
func (f *Form) Fields() []Field {
	fields := make([]Field, len(f.refs))
	for idx, ref := range f.refs {
		fields[idx] = f.fields[ref]
	}
	return fields
}

// FieldByName returns the field with the given name.
func (f *Form) FieldByName(name string) (Field, error) {
	for _, fld := range f.Fields() {
		if fld.Name() == name {
			return fld, nil
		}
	}
	return nil, fmt.Errorf("%w: no such element %q", ErrInvalidArgument, name)
}

func (f *Form) AddError(msg string) {
	f.errors = append(f.errors, msg)
}

// Errors returns the form level errors recorded by the last Validate call.
func (f *Form) Errors() []string {
	errs := make([]string, len(f.errors))
	copy(errs, f.errors)
	return errs
}

// IsSubmitted returns true if the request channel of the form's method
// carries the form ID as submission marker.
func (f *Form) IsSubmitted() bool {
	marker, ok := request.String(f.req, f.method.channel(), request.EventKey)
	return ok && marker == f.id
}

// resolve looks up the submitted value of a field.  GET forms consult the
// query first; all forms then fall back to the body and finally to file
// uploads.  Missing values of optional fields resolve to nil.
func (f *Form) resolve(name string, optional bool) (interface{}, error) {
	if f.method == MethodGet {
		if v, ok := f.req.Lookup(request.Query, name); ok {
			return v, nil
		}
	}
	if v, ok := f.req.Lookup(request.Body, name); ok {
		return v, nil
	}
	if v, ok := f.req.Lookup(request.Files, name); ok {
		return v, nil
	}
	if optional {
		return nil, nil
	}
	return nil, missingValueError(name)
}

// SubmittedData returns the raw submitted values of all fields, keyed by
// field name.  The request is read directly; values set with SetValue are
// not included.
func (f *Form) SubmittedData() (map[string]interface{}, error) {
	if !f.IsSubmitted() {
		return nil, ErrNotSubmitted
	}
	data := make(map[string]interface{}, len(f.refs))
	for _, fld := range f.Fields() {
		v, err := f.resolve(fld.Name(), fld.Optional())
		if err != nil {
			return nil, err
		}
		data[fld.Name()] = v
	}
	return data, nil
}

// SetData sets the value of every field whose name is a key of data.  See
// Element.SetValue.  Keys that do not match a field are ignored.
func (f *Form) SetData(data map[string]interface{}) {
	for _, fld := range f.Fields() {
		if v, ok := data[fld.Name()]; ok {
			fld.SetValue(v)
		}
	}
}

// Validate checks the CSRF token and runs the validator of every field on its
// submitted value.  Forms that were not submitted are valid.  Failed checks
// are recorded as form and field errors and do not stop the remaining checks.
// An error is only returned when the submitted data cannot be resolved or the
// session cannot be read.
func (f *Form) Validate() (bool, error) {
	if !f.IsSubmitted() {
		return true, nil
	}
	f.errors = nil
	valid := true

	if f.csrfEnabled {
		token, _ := request.String(f.req, f.method.channel(), request.CSRFKey)
		ok, err := f.guard.Verify(f.id, token)
		if err != nil {
			return false, err
		}
		if !ok {
			valid = false
			f.AddError(CSRFError)
		}
	}

	data, err := f.SubmittedData()
	if err != nil {
		return false, err
	}

	for _, fld := range f.Fields() {
		validator := fld.Validator()
		if validator == nil {
			continue
		}
		if validator.IsValid(data[fld.Name()]) {
			fld.SetErrors(nil)
			continue
		}
		fld.SetErrors(validator.Errors())
		valid = false
	}
	return valid, nil
}

// Render renders all fields as children of parent, sets the form attributes
// and prepends the hidden submission marker and, if enabled, a newly issued
// CSRF token.
func (f *Form) Render(parent dom.Node) (dom.Node, error) {
	if parent == nil || !parent.IsElement() {
		return nil, ErrInvalidNode
	}

	for _, fld := range f.Fields() {
		child := parent.CreateElement(fld.Tag())
		if _, err := fld.Render(child); err != nil {
			return nil, err
		}
		if err := parent.InsertBefore(child, nil); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
		}
	}

	parent.SetAttribute("id", f.id)
	parent.SetAttribute("method", string(f.method))

	first := parent.FirstChild()
	marker := hiddenInput(parent, request.EventKey, f.id)
	if err := parent.InsertBefore(marker, first); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}

	if f.csrfEnabled {
		token, err := f.guard.Issue(f.id)
		if err != nil {
			return nil, err
		}
		hidden := hiddenInput(parent, request.CSRFKey, token)
		if err := parent.InsertBefore(hidden, first); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
		}
	}
	return parent, nil
}

func hiddenInput(parent dom.Node, name, value string) dom.Node {
	input := parent.CreateElement("input")
	input.SetAttribute("type", string(HiddenInput))
	input.SetAttribute("name", name)
	input.SetAttribute("value", value)
	return input
}
