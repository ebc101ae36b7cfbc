package transport

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// Document is the page the frame and script strategies attach their
// transient elements to. It is safe for concurrent use.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	head *html.Node
	body *html.Node
}

func NewDocument() *Document {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := element(atom.Html)
	head := element(atom.Head)
	body := element(atom.Body)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	root.AppendChild(htmlEl)
	return &Document{root: root, head: head, body: body}
}

func (d *Document) AppendHead(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.head.AppendChild(n)
}

func (d *Document) AppendBody(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.body.AppendChild(n)
}

// Detach removes n from wherever it is attached. Detaching a node that is
// not attached is a no-op.
func (d *Document) Detach(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Attached counts the elements currently attached to head and body.
func (d *Document) Attached() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, parent := range []*html.Node{d.head, d.body} {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			n++
		}
	}
	return n
}

// Lookup finds an attached element by tag and name attribute.
func (d *Document) Lookup(a atom.Atom, name string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, parent := range []*html.Node{d.head, d.body} {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.DataAtom == a && attrValue(c, "name") == name {
				return c
			}
		}
	}
	return nil
}

// FormFields collects the name/value pairs of the form's inputs in
// document order, the way a browser builds a form submission.
func (d *Document) FormFields(form *html.Node) []domain.Field {
	d.mu.Lock()
	defer d.mu.Unlock()
	var fields []domain.Field
	for c := form.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom != atom.Input {
			continue
		}
		name := attrValue(c, "name")
		if name == "" {
			continue
		}
		fields = append(fields, domain.Field{Name: name, Value: attrValue(c, "value")})
	}
	return fields
}

func (d *Document) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sb strings.Builder
	if err := html.Render(&sb, d.root); err != nil {
		return ""
	}
	return sb.String()
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
