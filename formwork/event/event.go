package event

import "fmt"

const (
	// Submit is registered by every form and reports whether the form was
	// submitted with the active request.
	Submit = "onSubmit"
	// Change is registered by every form element and reports whether the
	// submitted value differs from the pre-submission value.
	Change = "onChange"
)

// Predicate answers a single "did this happen" question for a component.
type Predicate func() bool

// Hooks maps event names to the predicates that answer them.  The zero value
// is ready to use.
type Hooks struct {
	preds map[string]Predicate
}

// Register stores the predicate under the given name, replacing any previous
// registration with the same name.
func (h *Hooks) Register(name string, pred Predicate) {
	if pred == nil {
		panic(fmt.Sprintf("event: nil predicate for %q", name))
	}
	if h.preds == nil {
		h.preds = make(map[string]Predicate)
	}
	h.preds[name] = pred
}

// Has returns true if a predicate is registered under name.
func (h *Hooks) Has(name string) bool {
	_, ok := h.preds[name]
	return ok
}

// Query invokes the predicate registered under name.  Querying a name that
// was never registered is a programming error and panics.
func (h *Hooks) Query(name string) bool {
	pred, ok := h.preds[name]
	if !ok {
		panic(fmt.Sprintf("event: no hook registered for %q", name))
	}
	return pred()
}
