package splparser

import (
	"github.com/beevik/etree"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// maxOrganizationDepth bounds assignedEntity/assignedOrganization nesting under an author.
const maxOrganizationDepth = 8

func (r *run) extractIdentity(root *etree.Element, doc *entities.SPLDocument) {
	doc.DocumentID = PathAttr(root, "id", "root")
	if doc.DocumentID == "" {
		r.errs.add("document id has no root attribute")
	}

	doc.DocumentCode = BuildCodedConcept(Find(root, "code"))
	if doc.DocumentCode == nil {
		r.errs.add("document code is missing its code or codeSystem")
	}

	doc.Title = Text(Find(root, "title"))
	doc.EffectiveTime = PathAttr(root, "effectiveTime", "value")

	doc.SetID = PathAttr(root, "setId", "root")
	if doc.SetID == "" {
		r.errs.add("setId missing, defaulting to document id")
		doc.SetID = doc.DocumentID
	}

	doc.VersionNumber = PathAttr(root, "versionNumber", "value")
	if doc.VersionNumber == "" {
		r.errs.add("versionNumber missing, defaulting to 1")
		doc.VersionNumber = "1"
	}
}

// extractAuthor reads the labeler from author/assignedEntity/representedOrganization
// followed by every organization nested below it through assignedEntity/assignedOrganization.
func (r *run) extractAuthor(root *etree.Element) *entities.DocumentAuthor {
	author := Find(root, "author")
	if author == nil {
		return nil
	}
	a := &entities.DocumentAuthor{
		Organizations: []entities.Organization{},
		Time:          PathAttr(author, "time", "value"),
	}
	for _, org := range FindAllPath(author, "assignedEntity/representedOrganization") {
		a.Organizations = collectOrganizations(org, a.Organizations, 0)
	}
	if len(a.Organizations) == 0 {
		r.logger.Debug("author without organization")
	}
	return a
}

func collectOrganizations(org *etree.Element, out []entities.Organization, depth int) []entities.Organization {
	if depth >= maxOrganizationDepth {
		return out
	}
	id := Find(org, "id")
	out = append(out, entities.Organization{
		IDRoot:      Attr(id, "root"),
		IDExtension: Attr(id, "extension"),
		Name:        Text(Find(org, "name")),
	})
	for _, nested := range FindAllPath(org, "assignedEntity/assignedOrganization") {
		out = collectOrganizations(nested, out, depth+1)
	}
	return out
}
