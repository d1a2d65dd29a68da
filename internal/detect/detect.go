// Package detect decides whether an open document is a Bokeh server entry
// point that can be served with `bokeh serve`.
package detect

import "strings"

const (
	// EntryFile is the filename suffix a Bokeh server directory app must use.
	EntryFile = "main.py"
	// ImportMarker and RootMarker must both appear in the document text.
	ImportMarker = "from bokeh.io import curdoc"
	RootMarker   = "curdoc().add_root("
)

// Reason explains a detection outcome for the log surface.
type Reason int

const (
	ReasonDetected Reason = iota
	ReasonNotBokehFile
	ReasonMissingInvocations
)

func (r Reason) String() string {
	switch r {
	case ReasonDetected:
		return EntryFile + " detected"
	case ReasonNotBokehFile:
		return "Not a bokeh file"
	case ReasonMissingInvocations:
		return "Unable to find bokeh invocations in file"
	default:
		return "unknown"
	}
}

// Result is the outcome of Detect. Dir is only set when Applicable is true.
type Result struct {
	Applicable bool
	Dir        string
	Reason     Reason
}

// Detect checks path and text against the fixed entry-file suffix and the
// two marker substrings. The returned directory is path with the suffix
// removed, trailing separator included.
func Detect(path, text string) Result {
	start := len(path) - len(EntryFile)
	if start < 0 || path[start:] != EntryFile {
		return Result{Reason: ReasonNotBokehFile}
	}

	if !strings.Contains(text, ImportMarker) || !strings.Contains(text, RootMarker) {
		return Result{Reason: ReasonMissingInvocations}
	}

	return Result{
		Applicable: true,
		Dir:        path[:start],
		Reason:     ReasonDetected,
	}
}
