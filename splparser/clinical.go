package splparser

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/unicode/norm"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

const bullet = "• "

// ExtractText flattens a narrative text element. Paragraphs, table rows and
// line breaks end a line, list items are prefixed with a bullet, and runs of
// whitespace inside a line collapse to one space.
func ExtractText(el *etree.Element) string {
	if el == nil {
		return ""
	}
	b := &textBuilder{}
	b.walk(el)
	b.flush()
	return strings.Join(b.lines, "\n")
}

type textBuilder struct {
	lines         []string
	cur           strings.Builder
	pendingBullet bool
}

func (b *textBuilder) flush() {
	line := strings.Join(strings.Fields(b.cur.String()), " ")
	b.cur.Reset()
	if line == "" {
		return
	}
	line = norm.NFC.String(line)
	if b.pendingBullet {
		line = bullet + line
		b.pendingBullet = false
	}
	b.lines = append(b.lines, line)
}

func (b *textBuilder) walk(el *etree.Element) {
	for _, node := range el.Child {
		switch token := node.(type) {
		case *etree.CharData:
			b.cur.WriteString(token.Data)
		case *etree.Element:
			b.element(token)
		}
	}
}

func (b *textBuilder) element(el *etree.Element) {
	switch el.Tag {
	case "br":
		b.flush()
	case "renderMultiMedia":
		// media is reported through MediaReferences
	case "item":
		b.flush()
		b.pendingBullet = true
		b.walk(el)
		b.flush()
		b.pendingBullet = false
	case "paragraph", "p", "list", "table", "thead", "tbody", "tfoot", "tr", "caption", "title":
		b.flush()
		b.walk(el)
		b.flush()
	case "td", "th":
		b.cur.WriteByte(' ')
		b.walk(el)
		b.cur.WriteByte(' ')
	default:
		b.walk(el)
	}
}

// extractMedia collects inline renderMultiMedia references from the text
// block and observationMedia components of the section.
func (r *run) extractMedia(section, text *etree.Element, sectionID string) []entities.MediaReference {
	var block []entities.MediaReference
	for _, om := range FindAllPath(section, "component/observationMedia") {
		id := Attr(om, "ID")
		if id == "" {
			id = r.nextMediaID()
		}
		value := Find(om, "value")
		ref := PathAttr(value, "reference", "value")
		if ref == "" {
			r.errs.add("section %s: observationMedia %s has no reference value, skipped", sectionID, id)
			continue
		}
		mediaType := Attr(value, "mediaType")
		if mediaType == "" {
			mediaType = "unknown"
		}
		block = append(block, entities.MediaReference{
			MediaID:        id,
			MediaType:      mediaType,
			ReferenceValue: ref,
			Description:    Text(Find(om, "text")),
		})
	}

	known := make(map[string]string, len(block))
	for _, m := range block {
		known[m.MediaID] = m.MediaType
	}

	var inline []entities.MediaReference
	forEachDescendant(text, "renderMultiMedia", func(el *etree.Element) {
		obj := Attr(el, "referencedObject")
		if obj == "" {
			return
		}
		mediaType := "reference"
		if t, ok := known[obj]; ok {
			mediaType = t
		}
		inline = append(inline, entities.MediaReference{
			MediaID:        obj,
			MediaType:      mediaType,
			ReferenceValue: obj,
			Description:    Text(Find(el, "caption")),
		})
	})

	out := make([]entities.MediaReference, 0, len(inline)+len(block))
	out = append(out, inline...)
	return append(out, block...)
}

func (r *run) nextMediaID() string {
	r.mediaSeq++
	return fmt.Sprintf("media_%d", r.mediaSeq)
}

func forEachDescendant(el *etree.Element, tag string, fn func(*etree.Element)) {
	if el == nil {
		return
	}
	for _, child := range el.ChildElements() {
		if child.Tag == tag && isHL7(child) {
			fn(child)
		}
		forEachDescendant(child, tag, fn)
	}
}
