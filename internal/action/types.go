// Package action defines the closed set of recordable presentation actions and
// the self-framing binary codec used to persist them.
//
// Every frame carries its own length, so a damaged frame can be skipped without
// losing alignment with the frames that follow it.
package action

import "fmt"

// Type is the stable wire tag of an action kind. Tags are never reused across
// format versions; retired kinds keep their number reserved.
type Type uint8

// Action kinds.
const (
	TypeNextPage     Type = 1
	TypePreviousPage Type = 2
	TypeSelectPage   Type = 3
	TypeExtendView   Type = 4

	TypeToolBegin   Type = 10
	TypeToolExecute Type = 11
	TypeToolEnd     Type = 12

	TypePen         Type = 20
	TypeHighlighter Type = 21
	TypePointer     Type = 22
	TypeArrow       Type = 23
	TypeLine        Type = 24
	TypeRectangle   Type = 25
	TypeEllipse     Type = 26
	TypeRubber      Type = 27

	TypeText       Type = 30
	TypeTextChange Type = 31
	TypeTextFont   Type = 32
	TypeTextRemove Type = 33

	TypeZoom    Type = 40
	TypeZoomOut Type = 41
	TypePanning Type = 42

	TypeDeleteAll Type = 50
	TypeUndo      Type = 51
	TypeRedo      Type = 52

	TypeClone       Type = 60
	TypeSelect      Type = 61
	TypeSelectGroup Type = 62

	TypeDocumentOpen   Type = 70
	TypeDocumentClose  Type = 71
	TypeDocumentSelect Type = 72

	TypeScreenCapture Type = 80
)

var typeNames = map[Type]string{
	TypeNextPage:       "next-page",
	TypePreviousPage:   "previous-page",
	TypeSelectPage:     "select-page",
	TypeExtendView:     "extend-view",
	TypeToolBegin:      "tool-begin",
	TypeToolExecute:    "tool-execute",
	TypeToolEnd:        "tool-end",
	TypePen:            "pen",
	TypeHighlighter:    "highlighter",
	TypePointer:        "pointer",
	TypeArrow:          "arrow",
	TypeLine:           "line",
	TypeRectangle:      "rectangle",
	TypeEllipse:        "ellipse",
	TypeRubber:         "rubber",
	TypeText:           "text",
	TypeTextChange:     "text-change",
	TypeTextFont:       "text-font",
	TypeTextRemove:     "text-remove",
	TypeZoom:           "zoom",
	TypeZoomOut:        "zoom-out",
	TypePanning:        "panning",
	TypeDeleteAll:      "delete-all",
	TypeUndo:           "undo",
	TypeRedo:           "redo",
	TypeClone:          "clone",
	TypeSelect:         "select",
	TypeSelectGroup:    "select-group",
	TypeDocumentOpen:   "document-open",
	TypeDocumentClose:  "document-close",
	TypeDocumentSelect: "document-select",
	TypeScreenCapture:  "screen-capture",
}

// String returns the kind name, or "type(N)" for tags this build does not know.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is a tag this build can decode.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Types returns every known tag in ascending order.
func Types() []Type {
	out := make([]Type, 0, len(typeNames))
	for t := 0; t < 256; t++ {
		if Type(t).Valid() {
			out = append(out, Type(t))
		}
	}
	return out
}

// ParseType returns the tag whose String form is name.
func ParseType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}
