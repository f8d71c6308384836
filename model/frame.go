package model

// Frame types. Every stream carries zero or more content frames followed by
// exactly one terminal frame (done or error); nothing follows a terminal.
const (
	FrameContent = "content"
	FrameDone    = "done"
	FrameError   = "error"
)

// StreamFrame is one unit of the streaming response protocol. Exactly one
// variant is active, discriminated by Type.
type StreamFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ContentFrame returns a content frame carrying one delta.
func ContentFrame(delta string) StreamFrame {
	return StreamFrame{Type: FrameContent, Content: delta}
}

// DoneFrame returns the terminal success frame. Content holds the full
// concatenated response text.
func DoneFrame(finalText string) StreamFrame {
	return StreamFrame{Type: FrameDone, Content: finalText}
}

// ErrorFrame returns the terminal error frame with a human-readable message.
func ErrorFrame(msg string) StreamFrame {
	return StreamFrame{Type: FrameError, Error: msg}
}

// Terminal reports whether the frame ends its stream.
func (f StreamFrame) Terminal() bool {
	return f.Type == FrameDone || f.Type == FrameError
}
