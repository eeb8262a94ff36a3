package form

import (
	"fmt"
	"mime/multipart"
	"reflect"
	"sort"
	"strings"

	"github.com/G-Node/formwork/formwork/dom"
	"github.com/G-Node/formwork/formwork/event"
)

const (
	CheckboxInput ElementType = "checkbox"
	ColorInput    ElementType = "color"
	DateInput     ElementType = "date"
	DateTimeInput ElementType = "datetime-local"
	EmailInput    ElementType = "email"
	FileInput     ElementType = "file"
	HiddenInput   ElementType = "hidden"
	ImageInput    ElementType = "image"
	MonthInput    ElementType = "month"
	NumberInput   ElementType = "number"
	PasswordInput ElementType = "password"
	RadioInput    ElementType = "radio"
	RangeInput    ElementType = "range"
	SearchInput   ElementType = "search"
	SubmitInput   ElementType = "submit"
	TelInput      ElementType = "tel"
	TextInput     ElementType = "text"
	TimeInput     ElementType = "time"
	URLInput      ElementType = "url"
	WeekInput     ElementType = "week"
	TextArea      ElementType = "textarea"
	Select        ElementType = "select"
)

// ElementType defines the type of a form input element:
// https://developer.mozilla.org/en-US/docs/Web/HTML/Element/input
type ElementType string

// Tag returns the HTML tag used to render elements of this type.
func (et ElementType) Tag() string {
	switch et {
	case TextArea, Select:
		return string(et)
	}
	return "input"
}

// Validator decides whether a submitted value is acceptable.  Errors returns
// the messages describing the failures of the last IsValid call.
type Validator interface {
	IsValid(value interface{}) bool
	Errors() []string
}

// Field is the contract every form element satisfies.  Custom fields embed
// an *Element created with NewElement.
type Field interface {
	Name() string
	Tag() string
	Value() (interface{}, error)
	SetValue(v interface{})
	HasChanged() bool
	Validator() Validator
	SetValidator(v Validator)
	Errors() []string
	SetErrors(errs []string)
	Optional() bool
	SetOptional(optional bool)
	Render(node dom.Node) (dom.Node, error)
	Form() *Form
	Events() *event.Hooks

	setForm(f *Form)
	base() *Element
}

// Element is a single form input.  Before the owning form is submitted it
// holds its default value; afterwards it holds the value resolved from the
// request, read once and then cached.
type Element struct {
	form *Form
	name string
	typ  ElementType

	value     interface{}
	submitted interface{}
	resolved  bool

	optional  bool
	validator Validator
	errors    []string
	attrs     map[string]string
	options   []string
	events    event.Hooks
}

// NewElement returns an element with the given name and type and an empty
// default value.
func NewElement(name string, typ ElementType) *Element {
	e := &Element{
		name:  name,
		typ:   typ,
		value: "",
		attrs: make(map[string]string),
	}
	e.events.Register(event.Change, e.HasChanged)
	return e
}

func (e *Element) Name() string {
	return e.name
}

func (e *Element) Type() ElementType {
	return e.typ
}

func (e *Element) Tag() string {
	return e.typ.Tag()
}

func (e *Element) Form() *Form {
	return e.form
}

// base returns the embedded element of a custom field.  Nil for fields
// whose embedded element was never created.
func (e *Element) base() *Element {
	return e
}

func (e *Element) setForm(f *Form) {
	e.form = f
}

func (e *Element) Events() *event.Hooks {
	return &e.events
}

func (e *Element) isSubmitted() bool {
	return e.form != nil && e.form.IsSubmitted()
}

// SetValue stores v as the submitted value if the form was submitted, or as
// the default value otherwise.
func (e *Element) SetValue(v interface{}) {
	if e.isSubmitted() {
		e.submitted = v
		e.resolved = true
		return
	}
	e.value = v
}

// Value returns the default value before submission.  After submission it
// returns the value resolved from the request; the request is only read on
// the first call.
func (e *Element) Value() (interface{}, error) {
	if !e.isSubmitted() {
		return e.value, nil
	}
	if !e.resolved {
		v, err := e.form.resolve(e.name, e.optional)
		if err != nil {
			return nil, err
		}
		e.submitted = v
		e.resolved = true
	}
	return e.submitted, nil
}

// HasChanged returns true if the form was submitted and the submitted value
// differs from the default value.
func (e *Element) HasChanged() bool {
	if !e.isSubmitted() {
		return false
	}
	v, err := e.Value()
	if err != nil {
		return false
	}
	return !reflect.DeepEqual(e.value, v)
}

func (e *Element) Validator() Validator {
	return e.validator
}

func (e *Element) SetValidator(v Validator) {
	e.validator = v
}

func (e *Element) Errors() []string {
	return e.errors
}

func (e *Element) SetErrors(errs []string) {
	if len(errs) == 0 {
		e.errors = nil
		return
	}
	e.errors = make([]string, len(errs))
	copy(e.errors, errs)
}

func (e *Element) Optional() bool {
	return e.optional
}

func (e *Element) SetOptional(optional bool) {
	e.optional = optional
}

func (e *Element) SetID(id string) {
	e.attrs["id"] = id
}

func (e *Element) SetDisabled(disabled bool) {
	e.setFlag("disabled", disabled)
}

func (e *Element) SetReadOnly(readonly bool) {
	e.setFlag("readonly", readonly)
}

func (e *Element) setFlag(key string, on bool) {
	if on {
		e.attrs[key] = key
	} else {
		delete(e.attrs, key)
	}
}

// SetAttribute sets an arbitrary attribute rendered on the element.
func (e *Element) SetAttribute(key, val string) {
	e.attrs[key] = val
}

func (e *Element) Attribute(key string) (string, bool) {
	val, ok := e.attrs[key]
	return val, ok
}

// SetOptions sets the values offered by select elements.
func (e *Element) SetOptions(options []string) {
	e.options = make([]string, len(options))
	copy(e.options, options)
}

// Render applies the element's attributes and current value to node.
func (e *Element) Render(node dom.Node) (dom.Node, error) {
	if node == nil || !node.IsElement() {
		return nil, ErrInvalidNode
	}
	val, err := e.Value()
	if err != nil {
		return nil, err
	}
	e.renderAttributes(node)
	display := DisplayValue(val)

	switch e.typ {
	case TextArea:
		node.SetText(display)
	case FileInput:
		// browsers ignore preset values of file inputs
	case Select:
		for _, opt := range e.options {
			option := node.CreateElement("option")
			option.SetAttribute("value", opt)
			if opt == display {
				option.SetAttribute("selected", "selected")
			}
			option.SetText(opt)
			if err := node.InsertBefore(option, nil); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
			}
		}
	default:
		node.SetAttribute("value", display)
	}
	return node, nil
}

func (e *Element) renderAttributes(node dom.Node) {
	node.SetAttribute("name", e.name)
	if e.typ.Tag() == "input" {
		node.SetAttribute("type", string(e.typ))
	}
	keys := make([]string, 0, len(e.attrs))
	for key := range e.attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		node.SetAttribute(key, e.attrs[key])
	}
}

// DisplayValue returns the string form of a field value as it is rendered.
// Repeated values are joined with commas and file uploads yield their name.
func DisplayValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case *multipart.FileHeader:
		return v.Filename
	}
	return fmt.Sprint(val)
}
