package mado

import (
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/sr"
)

// libraryInstance is what an Image Library entry says about one instance
type libraryInstance struct {
	number int
	frames int
}

// librarySeries is what an Image Library group says about one series
type librarySeries struct {
	modality    *sr.Code
	description opt.Text
	number      int
}

// library indexes the Image Library (TID 1600) of a content tree
type library struct {
	instances map[string]libraryInstance
	series    map[string]librarySeries
}

// indexLibrary reads every Image Library container of the tree. Groups without a
// Series Instance UID item are matched to a series through the evidence.
func indexLibrary(root *sr.Node, ev kos.Evidence) library {
	lib := library{
		instances: map[string]libraryInstance{},
		series:    map[string]librarySeries{},
	}
	if root == nil {
		return lib
	}
	root.Walk(func(n *sr.Node, _ string, _ int) bool {
		if !n.Named(sr.ImageLibrary) {
			return true
		}
		lib.readGroup(n, ev)
		for _, child := range n.Children {
			if child.ValueType == sr.Container {
				lib.readGroup(child, ev)
			}
		}
		return false
	})
	return lib
}

func (lib library) readGroup(group *sr.Node, ev kos.Evidence) {
	var (
		info      librarySeries
		seriesUID string
		hasInfo   bool
	)
	for _, child := range group.Children {
		switch {
		case child.Named(sr.SeriesInstanceUID):
			seriesUID = child.UID.String()
		case child.Named(sr.Modality):
			if c, ok := child.Code(); ok {
				info.modality = &c
				hasInfo = true
			}
		case child.Named(sr.SeriesDescription):
			info.description = child.TextValue
			hasInfo = true
		case child.Named(sr.SeriesNumber) && child.Numeric != nil:
			if v, ok := numeric(child.Numeric.Value); ok {
				info.number = v
				hasInfo = true
			}
		case child.ValueType == sr.Image:
			lib.readImage(child)
			if seriesUID == "" && len(child.References) > 0 {
				if loc, ok := ev.Find(child.References[0].InstanceUID); ok {
					seriesUID = loc.Series.SeriesInstanceUID
				}
			}
		}
	}
	if seriesUID != "" && hasInfo {
		lib.series[seriesUID] = info
	}
}

func (lib library) readImage(img *sr.Node) {
	var entry libraryInstance
	for _, child := range img.Children {
		if child.Numeric == nil {
			continue
		}
		v, ok := numeric(child.Numeric.Value)
		if !ok {
			continue
		}
		switch {
		case child.Named(sr.InstanceNumber):
			entry.number = v
		case child.Named(sr.NumberOfFrames):
			entry.frames = v
		}
	}
	for _, ref := range img.References {
		if _, seen := lib.instances[ref.InstanceUID]; !seen {
			lib.instances[ref.InstanceUID] = entry
		}
	}
}
