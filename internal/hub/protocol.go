package hub

// OutputStream names the only output stream: the "Bokeh" log surface.
const OutputStream = "bokeh"

// OutputMessage carries text appended to the log surface, batched.
type OutputMessage struct {
	Type   string `json:"type"`
	Stream string `json:"stream"`
	Text   string `json:"text"`
	Ts     int64  `json:"ts"`
}

// RevealMessage asks the page showing panel to come to the front.
type RevealMessage struct {
	Type  string `json:"type"`
	Panel string `json:"panel"`
}

// StatusMessage carries the latest daemon snapshot.
type StatusMessage struct {
	Type   string `json:"type"`
	Status any    `json:"status"`
}

type ClientMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
