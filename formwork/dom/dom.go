// Package dom defines the renderable node contract used by forms and fields
// and provides an implementation backed by golang.org/x/net/html.
package dom

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInvalidNode is returned when a node from a different implementation, or
// a non-element node, is passed where an element is required.
var ErrInvalidNode = errors.New("invalid node")

// Node is the minimal contract a rendering target has to satisfy.
type Node interface {
	// IsElement returns true if the node is an element that can carry
	// attributes and children.
	IsElement() bool
	// CreateElement returns a new detached element node with the given tag.
	CreateElement(tag string) Node
	// SetAttribute sets (or replaces) the attribute key to val.
	SetAttribute(key, val string)
	// Attribute returns the value of the attribute key.
	Attribute(key string) (string, bool)
	// InsertBefore inserts child before ref.  A nil ref appends child.
	InsertBefore(child, ref Node) error
	// FirstChild returns the first child, or nil.
	FirstChild() Node
	// SetText replaces all children with a single text node.
	SetText(text string)
}

// HTMLNode wraps an *html.Node.
type HTMLNode struct {
	n *html.Node
}

// Wrap returns a Node for the given html node.
func Wrap(n *html.Node) *HTMLNode {
	return &HTMLNode{n: n}
}

// NewElement returns a new detached element with the given tag name.
func NewElement(tag string) *HTMLNode {
	tag = strings.ToLower(tag)
	return Wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	})
}

// NewText returns a new detached text node.
func NewText(text string) *HTMLNode {
	return Wrap(&html.Node{Type: html.TextNode, Data: text})
}

// HTML returns the underlying html node.
func (h *HTMLNode) HTML() *html.Node {
	return h.n
}

func (h *HTMLNode) IsElement() bool {
	return h != nil && h.n != nil && h.n.Type == html.ElementNode
}

func (h *HTMLNode) CreateElement(tag string) Node {
	return NewElement(tag)
}

func (h *HTMLNode) SetAttribute(key, val string) {
	for idx := range h.n.Attr {
		if h.n.Attr[idx].Namespace == "" && h.n.Attr[idx].Key == key {
			h.n.Attr[idx].Val = val
			return
		}
	}
	h.n.Attr = append(h.n.Attr, html.Attribute{Key: key, Val: val})
}

func (h *HTMLNode) Attribute(key string) (string, bool) {
	for _, attr := range h.n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func (h *HTMLNode) InsertBefore(child, ref Node) error {
	c, ok := child.(*HTMLNode)
	if !ok || c == nil || c.n == nil {
		return ErrInvalidNode
	}
	if c.n.Parent != nil {
		c.n.Parent.RemoveChild(c.n)
	}
	if ref == nil {
		h.n.AppendChild(c.n)
		return nil
	}
	r, ok := ref.(*HTMLNode)
	if !ok || r == nil || r.n == nil || r.n.Parent != h.n {
		return ErrInvalidNode
	}
	h.n.InsertBefore(c.n, r.n)
	return nil
}

func (h *HTMLNode) FirstChild() Node {
	if h.n.FirstChild == nil {
		return nil
	}
	return Wrap(h.n.FirstChild)
}

func (h *HTMLNode) SetText(text string) {
	for c := h.n.FirstChild; c != nil; c = h.n.FirstChild {
		h.n.RemoveChild(c)
	}
	h.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Render writes the HTML serialization of n to w.
func Render(w io.Writer, n Node) error {
	h, ok := n.(*HTMLNode)
	if !ok || h == nil || h.n == nil {
		return ErrInvalidNode
	}
	return html.Render(w, h.n)
}

// String returns the HTML serialization of n, or an empty string if n cannot
// be rendered.
func String(n Node) string {
	buf := new(bytes.Buffer)
	if err := Render(buf, n); err != nil {
		return ""
	}
	return buf.String()
}
