package form

import "github.com/G-Node/formwork/formwork/dom"

// Button is a submit button.  It is optional by default since browsers only
// send the name of the button that was clicked.
type Button struct {
	*Element
	label string
}

// NewButton returns a submit button labelled with its name.
func NewButton(name string) *Button {
	b := &Button{Element: NewElement(name, SubmitInput), label: name}
	b.optional = true
	return b
}

// SetLabel sets the text shown on the button.
func (b *Button) SetLabel(label string) {
	b.label = label
}

// SetType changes the input type of the button (e.g. "reset" or "button").
func (b *Button) SetType(typ ElementType) {
	b.typ = typ
}

// Value returns the submitted value of the button, or nil if the form was not
// submitted with it.
func (b *Button) Value() (interface{}, error) {
	if !b.isSubmitted() {
		return nil, nil
	}
	return b.Element.Value()
}

// Clicked returns true if the form was submitted using this button.
func (b *Button) Clicked() bool {
	v, err := b.Value()
	return err == nil && v != nil
}

// Render applies the button's attributes and label to node.
func (b *Button) Render(node dom.Node) (dom.Node, error) {
	if node == nil || !node.IsElement() {
		return nil, ErrInvalidNode
	}
	b.renderAttributes(node)
	node.SetAttribute("value", b.label)
	return node, nil
}
