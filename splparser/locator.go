package splparser

import (
	"strings"

	"github.com/beevik/etree"
)

// HL7Namespace is the namespace SPL documents are declared under.
const HL7Namespace = "urn:hl7-org:v3"

// Find returns the first child of parent named tag. Children in the HL7
// namespace win, whether it was declared as default or with a prefix;
// otherwise the first child with that local name and no namespace is used.
func Find(parent *etree.Element, tag string) *etree.Element {
	if parent == nil {
		return nil
	}
	var fallback *etree.Element
	for _, child := range parent.ChildElements() {
		if child.Tag != tag {
			continue
		}
		switch child.NamespaceURI() {
		case HL7Namespace:
			return child
		case "":
			if fallback == nil {
				fallback = child
			}
		}
	}
	return fallback
}

// FindAll returns every child named tag, preferring HL7-namespaced matches.
func FindAll(parent *etree.Element, tag string) []*etree.Element {
	if parent == nil {
		return nil
	}
	var qualified, bare []*etree.Element
	for _, child := range parent.ChildElements() {
		if child.Tag != tag {
			continue
		}
		switch child.NamespaceURI() {
		case HL7Namespace:
			qualified = append(qualified, child)
		case "":
			bare = append(bare, child)
		}
	}
	if len(qualified) > 0 {
		return qualified
	}
	return bare
}

// FindPath follows a slash separated path of tags, taking the first match at each step.
func FindPath(parent *etree.Element, path string) *etree.Element {
	el := parent
	for _, tag := range strings.Split(path, "/") {
		if el = Find(el, tag); el == nil {
			return nil
		}
	}
	return el
}

// FindAllPath follows a slash separated path, fanning out over every match at each step.
func FindAllPath(parent *etree.Element, path string) []*etree.Element {
	if parent == nil {
		return nil
	}
	frontier := []*etree.Element{parent}
	for _, tag := range strings.Split(path, "/") {
		var next []*etree.Element
		for _, el := range frontier {
			next = append(next, FindAll(el, tag)...)
		}
		if len(next) == 0 {
			return nil
		}
		frontier = next
	}
	return frontier
}

// Attr returns the trimmed value of an attribute, or "" when el is nil or the attribute is absent.
func Attr(el *etree.Element, name string) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.SelectAttrValue(name, ""))
}

// PathAttr is Attr applied to FindPath(parent, path).
func PathAttr(parent *etree.Element, path, name string) string {
	return Attr(FindPath(parent, path), name)
}

// Text returns the whitespace-collapsed character data of el and all its descendants.
func Text(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	collectText(el, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(el *etree.Element, b *strings.Builder) {
	for _, node := range el.Child {
		switch token := node.(type) {
		case *etree.CharData:
			b.WriteString(token.Data)
		case *etree.Element:
			collectText(token, b)
		}
	}
}

// isHL7 reports whether el is in the HL7 namespace or carries no namespace at all.
func isHL7(el *etree.Element) bool {
	ns := el.NamespaceURI()
	return ns == HL7Namespace || ns == ""
}
