package validate

import (
	"fmt"

	"github.com/jpfielding/mado.go/pkg/report"
	"github.com/jpfielding/mado.go/pkg/sr"
)

// walk is the collector of one validation: the references seen so far, keyed to
// the path of their first occurrence
type walk struct {
	v        *Validator
	res      *report.Result
	self     string
	evidence map[string]struct{}
	seen     map[string]string
}

func (w *walk) root(root *sr.Node) {
	if root == nil || len(root.Children) == 0 {
		w.res.Errorf(report.CodeRequired, rootPath, "content sequence is empty")
		return
	}
	if root.ValueType != "" && root.ValueType != sr.Container {
		w.res.Errorf(report.CodeStructure, "", "root content item is %s, not CONTAINER", root.ValueType)
	}
	title := sr.Code{}
	switch {
	case root.ConceptName == nil:
		w.res.Errorf(report.CodeRequired, "ConceptNameCodeSequence", "document has no title")
	case !sr.DocumentTitles.Contains(*root.ConceptName):
		title = *root.ConceptName
		w.res.Warnf(report.CodeValue, "ConceptNameCodeSequence", "document title %s is not in %s", title, sr.DocumentTitles.Name)
	default:
		title = *root.ConceptName
	}
	if !root.HasReference() {
		w.res.Errorf(report.CodeRequired, rootPath, "content tree references no IMAGE, COMPOSITE or WAVEFORM instance")
	}

	descriptions := 0
	for i, child := range root.Children {
		path := sr.ChildPath("", i)
		if child.Named(sr.KeyObjectDescription) && child.ValueType == sr.Text {
			descriptions++
		}
		if child.RelationshipType != sr.Contains && !isModifier(child) && !isStudyContext(child) {
			w.res.Errorf(report.CodeStructure, path, "top level relationship is %q, must be CONTAINS", child.RelationshipType)
		}
	}
	if descriptions > 1 {
		w.res.Errorf(report.CodeCardinality, rootPath,
			"found %d Key Object Description items at the top level; at most one is allowed", descriptions)
	}

	w.modifiers(title, "", root.Children, nil)
	w.children(root, "")
}

// isModifier reports a Document Title Modifier item
func isModifier(n *sr.Node) bool {
	return n.RelationshipType == sr.HasConceptMod && n.Named(sr.DocumentTitleModifier)
}

// isStudyContext reports a study level acquisition context leaf
func isStudyContext(n *sr.Node) bool {
	return n.RelationshipType == sr.HasAcqContext && n.ValueType != sr.Container && len(n.Children) == 0
}

// modifiers checks that a title demanding modifiers has one, either among the
// item's own children or among its siblings
func (w *walk) modifiers(title sr.Code, path string, children, siblings []*sr.Node) {
	set, required := sr.RequiredModifiers(title)
	if !required {
		return
	}
	var found []sr.Code
	for _, group := range [][]*sr.Node{children, siblings} {
		for _, n := range group {
			if isModifier(n) {
				if c, ok := n.Code(); ok {
					found = append(found, c)
				}
			}
		}
	}
	if len(found) == 0 {
		w.res.Errorf(report.CodeModifier, pathOrRoot(path),
			"%s requires a Document Title Modifier (113011, DCM) from %s", title, set.Name)
		return
	}
	for _, c := range found {
		if set.Contains(c) {
			return
		}
	}
	w.res.Warnf(report.CodeModifier, pathOrRoot(path),
		"no Document Title Modifier of %s is from %s", title, set.Name)
}

func pathOrRoot(path string) string {
	if path == "" {
		return rootPath
	}
	return path
}

func (w *walk) children(parent *sr.Node, prefix string) {
	for i, child := range parent.Children {
		w.item(child, parent, sr.ChildPath(prefix, i))
	}
}

// item checks one content item and descends into it
func (w *walk) item(n, parent *sr.Node, path string) {
	res := w.res
	if n.RelationshipType == "" {
		res.Errorf(report.CodeRequired, path, "content item has no Relationship Type")
	} else if !n.RelationshipType.IsKnown() {
		res.Errorf(report.CodeValue, path, "relationship type %q is not allowed", n.RelationshipType)
	}
	if !n.ValueType.IsKnown() {
		res.Errorf(report.CodeValue, path, "value type %q is not allowed", n.ValueType)
	}
	if n.ConceptName == nil {
		if !n.ValueType.IsReference() {
			res.Errorf(report.CodeRequired, path, "%s item has no concept name", n.ValueType)
		}
	} else if !n.ConceptName.IsComplete() {
		res.Errorf(report.CodeValue, path, "concept name %s is incomplete", *n.ConceptName)
	}

	switch n.ValueType {
	case sr.Text:
		switch {
		case !n.TextValue.IsSet():
			res.Errorf(report.CodeRequired, path, "TEXT item has no Text Value")
		case !n.TextValue.IsPresent():
			res.Warnf(report.CodeValue, path, "TEXT item has an empty Text Value")
		}
	case sr.UIDRef:
		switch {
		case !n.UID.IsPresent():
			res.Errorf(report.CodeRequired, path, "UIDREF item has no UID")
		case !ValidUID(n.UID.String()):
			res.Errorf(report.CodeValue, path, "UIDREF value %q is malformed", n.UID.String())
		}
	case sr.PName:
		if !n.PersonName.IsPresent() {
			res.Errorf(report.CodeRequired, path, "PNAME item has no Person Name")
		}
	case sr.CodeValue:
		switch {
		case len(n.Codes) != 1:
			res.Errorf(report.CodeCardinality, path, "CODE item has %d Concept Code Sequence items, must have exactly one", len(n.Codes))
		case !n.Codes[0].IsComplete():
			res.Errorf(report.CodeValue, path, "code %s needs value, scheme and meaning", n.Codes[0])
		}
	case sr.Num:
		if n.Numeric == nil || n.Numeric.Value == "" {
			res.Errorf(report.CodeRequired, path, "NUM item has no Measured Value")
		}
	case sr.Image, sr.Composite, sr.Waveform:
		w.references(n, path)
	}

	if n.ConceptName != nil && n.ValueType == sr.Image {
		var siblings []*sr.Node
		if parent != nil {
			siblings = parent.Children
		}
		w.modifiers(*n.ConceptName, path, n.Children, siblings)
	}

	if n.ValueType != sr.Container && len(n.Children) > 0 {
		for i, child := range n.Children {
			if n.ValueType == sr.Image && (child.RelationshipType == sr.HasAcqContext || isModifier(child)) {
				continue
			}
			res.Warnf(report.CodeStructure, sr.ChildPath(path, i), "%s item carries a %s child", n.ValueType, child.ValueType)
		}
	}
	w.children(n, path)
}

// references checks the SOP references of an IMAGE, COMPOSITE or WAVEFORM item
func (w *walk) references(n *sr.Node, path string) {
	res := w.res
	if len(n.References) == 0 {
		res.Errorf(report.CodeRequired, path, "%s item has no Referenced SOP Sequence", n.ValueType)
		return
	}
	if n.HasPurposeOfReference {
		res.Errorf(report.CodeStructure, path, "%s item carries a Purpose of Reference, which TID 2010 forbids", n.ValueType)
	}
	for j, ref := range n.References {
		refPath := fmt.Sprintf("%s.ReferencedSOPSequence[%d]", path, j)
		if ref.ClassUID == "" {
			res.Errorf(report.CodeRequired, refPath, "reference has no SOP Class UID")
		}
		uid := ref.InstanceUID
		if uid == "" {
			res.Errorf(report.CodeRequired, refPath, "reference has no SOP Instance UID")
			continue
		}
		if !ValidUID(uid) {
			res.Errorf(report.CodeValue, refPath, "referenced UID %q is malformed", uid)
		}
		if uid == w.self {
			res.Errorf(report.CodeSelfRef, refPath, "manifest references its own SOP Instance UID %s", uid)
		}
		if first, dup := w.seen[uid]; dup {
			if !w.v.allowDuplicates {
				res.Errorf(report.CodeDuplicate, refPath, "instance %s is already referenced at %s", uid, first)
			}
		} else {
			w.seen[uid] = refPath
		}
		if _, ok := w.evidence[uid]; !ok {
			res.Errorf(report.CodeOrphan, refPath, "instance %s is not listed in the evidence sequence", uid)
		}
	}
}
