package action

import "reflect"

// KeyKind distinguishes key presses from releases.
type KeyKind uint8

// Key event kinds.
const (
	KeyPressed  KeyKind = 1
	KeyReleased KeyKind = 2
)

// KeyEvent is the keyboard context an action was produced under.
type KeyEvent struct {
	Code      int32
	Modifiers uint32
	Kind      KeyKind
}

// Base holds the fields shared by every action kind.
type Base struct {
	// Timestamp is the offset from recording start in milliseconds.
	Timestamp uint32
	// Key is nil when the action was not produced by a key binding.
	Key *KeyEvent
}

// Header returns the shared fields of an action.
func (b *Base) Header() *Base { return b }

func (b *Base) action() {}

// Action is one discrete, timestamped, replayable edit or navigation event.
// The set of implementations is closed: only the kinds declared in this
// package can be encoded.
type Action interface {
	Type() Type
	Header() *Base
	action()
}

// Point is a pointer-device sample. Pressure was added in a later format
// revision and decodes as zero from older frames.
type Point struct {
	X, Y     float32
	Pressure float32
}

// Rect is a view rectangle in normalized page coordinates.
type Rect struct {
	X, Y, Width, Height float32
}

// Stroke describes the settings of a shape-drawing tool. Style was added in a
// later format revision.
type Stroke struct {
	Handle int32
	Color  uint32
	Width  float32
	Style  uint32
}

type (
	NextPage     struct{ Base }
	PreviousPage struct{ Base }
	SelectPage   struct {
		Base
		Page int32
	}
	ExtendView struct {
		Base
		Rect
	}

	ToolBegin struct {
		Base
		Point
	}
	ToolExecute struct {
		Base
		Point
	}
	ToolEnd struct {
		Base
		Point
	}

	Pen struct {
		Base
		Stroke
	}
	Highlighter struct {
		Base
		Stroke
	}
	Pointer struct {
		Base
		Stroke
	}
	Arrow struct {
		Base
		Stroke
	}
	Line struct {
		Base
		Stroke
	}
	Rectangle struct {
		Base
		Stroke
	}
	Ellipse struct {
		Base
		Stroke
	}
	Rubber struct {
		Base
		Handle int32
	}

	Text struct {
		Base
		Handle int32
	}
	TextChange struct {
		Base
		Handle int32
		Text   string
	}
	// TextFont changes the font of a text box. Underline and Strikethrough
	// are trailing fields absent from older frames.
	TextFont struct {
		Base
		Handle        int32
		Family        string
		Size          float32
		Color         uint32
		Bold          bool
		Italic        bool
		Underline     bool
		Strikethrough bool
	}
	TextRemove struct {
		Base
		Handle int32
	}

	Zoom struct {
		Base
		Rect
	}
	ZoomOut struct{ Base }
	Panning struct {
		Base
		Rect
	}

	DeleteAll struct{ Base }
	Undo      struct{ Base }
	Redo      struct{ Base }

	Clone       struct{ Base }
	Select      struct{ Base }
	SelectGroup struct{ Base }

	DocumentOpen struct {
		Base
		DocumentID int32
		Title      string
	}
	DocumentClose struct {
		Base
		DocumentID int32
	}
	DocumentSelect struct {
		Base
		DocumentID int32
	}

	// ScreenCapture references an externally stored screen recording segment.
	// Width and Height are trailing fields absent from older frames.
	ScreenCapture struct {
		Base
		File          string
		Offset        uint32
		Length        uint32
		Width, Height int32
	}
)

func (*NextPage) Type() Type       { return TypeNextPage }
func (*PreviousPage) Type() Type   { return TypePreviousPage }
func (*SelectPage) Type() Type     { return TypeSelectPage }
func (*ExtendView) Type() Type     { return TypeExtendView }
func (*ToolBegin) Type() Type      { return TypeToolBegin }
func (*ToolExecute) Type() Type    { return TypeToolExecute }
func (*ToolEnd) Type() Type        { return TypeToolEnd }
func (*Pen) Type() Type            { return TypePen }
func (*Highlighter) Type() Type    { return TypeHighlighter }
func (*Pointer) Type() Type        { return TypePointer }
func (*Arrow) Type() Type          { return TypeArrow }
func (*Line) Type() Type           { return TypeLine }
func (*Rectangle) Type() Type      { return TypeRectangle }
func (*Ellipse) Type() Type        { return TypeEllipse }
func (*Rubber) Type() Type         { return TypeRubber }
func (*Text) Type() Type           { return TypeText }
func (*TextChange) Type() Type     { return TypeTextChange }
func (*TextFont) Type() Type       { return TypeTextFont }
func (*TextRemove) Type() Type     { return TypeTextRemove }
func (*Zoom) Type() Type           { return TypeZoom }
func (*ZoomOut) Type() Type        { return TypeZoomOut }
func (*Panning) Type() Type        { return TypePanning }
func (*DeleteAll) Type() Type      { return TypeDeleteAll }
func (*Undo) Type() Type           { return TypeUndo }
func (*Redo) Type() Type           { return TypeRedo }
func (*Clone) Type() Type          { return TypeClone }
func (*Select) Type() Type         { return TypeSelect }
func (*SelectGroup) Type() Type    { return TypeSelectGroup }
func (*DocumentOpen) Type() Type   { return TypeDocumentOpen }
func (*DocumentClose) Type() Type  { return TypeDocumentClose }
func (*DocumentSelect) Type() Type { return TypeDocumentSelect }
func (*ScreenCapture) Type() Type  { return TypeScreenCapture }

// New returns a zero-valued action of kind t, or nil if t is unknown.
func New(t Type) Action {
	switch t {
	case TypeNextPage:
		return &NextPage{}
	case TypePreviousPage:
		return &PreviousPage{}
	case TypeSelectPage:
		return &SelectPage{}
	case TypeExtendView:
		return &ExtendView{}
	case TypeToolBegin:
		return &ToolBegin{}
	case TypeToolExecute:
		return &ToolExecute{}
	case TypeToolEnd:
		return &ToolEnd{}
	case TypePen:
		return &Pen{}
	case TypeHighlighter:
		return &Highlighter{}
	case TypePointer:
		return &Pointer{}
	case TypeArrow:
		return &Arrow{}
	case TypeLine:
		return &Line{}
	case TypeRectangle:
		return &Rectangle{}
	case TypeEllipse:
		return &Ellipse{}
	case TypeRubber:
		return &Rubber{}
	case TypeText:
		return &Text{}
	case TypeTextChange:
		return &TextChange{}
	case TypeTextFont:
		return &TextFont{}
	case TypeTextRemove:
		return &TextRemove{}
	case TypeZoom:
		return &Zoom{}
	case TypeZoomOut:
		return &ZoomOut{}
	case TypePanning:
		return &Panning{}
	case TypeDeleteAll:
		return &DeleteAll{}
	case TypeUndo:
		return &Undo{}
	case TypeRedo:
		return &Redo{}
	case TypeClone:
		return &Clone{}
	case TypeSelect:
		return &Select{}
	case TypeSelectGroup:
		return &SelectGroup{}
	case TypeDocumentOpen:
		return &DocumentOpen{}
	case TypeDocumentClose:
		return &DocumentClose{}
	case TypeDocumentSelect:
		return &DocumentSelect{}
	case TypeScreenCapture:
		return &ScreenCapture{}
	}
	return nil
}

// SetTimestamp stamps a with the given offset from recording start.
func SetTimestamp(a Action, ms uint32) {
	a.Header().Timestamp = ms
}

// CloneAction returns a deep copy of a. Mutating the copy never affects the original.
func CloneAction(a Action) Action {
	if a == nil {
		return nil
	}
	src := reflect.ValueOf(a).Elem()
	dst := reflect.New(src.Type())
	dst.Elem().Set(src)
	out := dst.Interface().(Action)
	if k := a.Header().Key; k != nil {
		key := *k
		out.Header().Key = &key
	}
	return out
}

// CloneAll deep-copies every action in actions.
func CloneAll(actions []Action) []Action {
	if len(actions) == 0 {
		return nil
	}
	out := make([]Action, len(actions))
	for i, a := range actions {
		out[i] = CloneAction(a)
	}
	return out
}
