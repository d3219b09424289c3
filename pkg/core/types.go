package core

// Size is a width/height pair in physical pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Position is a screen coordinate of a window's outer top-left corner.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds combines a position and an inner size.
type Bounds struct {
	Position
	Size
}

// Monitor describes the display a window currently sits on.
type Monitor struct {
	Name     string
	Position Position
	Size     Size
}

// ControlFlow tells the event loop whether to keep polling.
type ControlFlow int

const (
	Poll ControlFlow = iota
	Exit
)

// Then returns the stronger of two decisions. Exit is never undone.
func (c ControlFlow) Then(next ControlFlow) ControlFlow {
	if c == Exit || next == Exit {
		return Exit
	}
	return Poll
}

func (c ControlFlow) String() string {
	if c == Exit {
		return "exit"
	}
	return "poll"
}

// AttentionType selects how loudly a window asks for the user's attention.
type AttentionType int

const (
	// AttentionCancel withdraws a pending request.
	AttentionCancel AttentionType = iota
	AttentionInformational
	AttentionCritical
)

// WindowOptions is everything createWindow can configure on a new pair.
type WindowOptions struct {
	Title       string
	URL         string
	HTML        string
	Size        Size
	Position    *Position
	MinSize     *Size
	MaxSize     *Size
	IconPath    string
	Resizable   bool
	AlwaysOnTop bool
	Fullscreen  bool
	Decorations bool
	Center      bool
	Preload     string
	Visible     bool
	Devtools    bool
}

// DefaultWindowOptions mirrors what a plain createWindow call produces.
func DefaultWindowOptions() WindowOptions {
	return WindowOptions{
		Title:       "nanoframe",
		Size:        Size{Width: 800, Height: 600},
		Resizable:   true,
		Decorations: true,
		Visible:     true,
	}
}

// CenterIn returns the outer position that centers outer inside m.
func CenterIn(m Monitor, outer Size) Position {
	return Position{
		X: m.Position.X + (m.Size.Width-outer.Width)/2,
		Y: m.Position.Y + (m.Size.Height-outer.Height)/2,
	}
}

// ClampSize applies optional min/max limits to s. Every dimension stays at least 1.
func ClampSize(s Size, lower, upper *Size) Size {
	if upper != nil {
		if upper.Width > 0 && s.Width > upper.Width {
			s.Width = upper.Width
		}
		if upper.Height > 0 && s.Height > upper.Height {
			s.Height = upper.Height
		}
	}
	if lower != nil {
		if s.Width < lower.Width {
			s.Width = lower.Width
		}
		if s.Height < lower.Height {
			s.Height = lower.Height
		}
	}
	if s.Width < 1 {
		s.Width = 1
	}
	if s.Height < 1 {
		s.Height = 1
	}
	return s
}
