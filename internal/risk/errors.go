package risk

import "fmt"

// MalformedEventError reports a row that could not be scored.
type MalformedEventError struct {
	Row    int
	Reason string
}

func (e *MalformedEventError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed event at row %d: %s", e.Row, e.Reason)
	}
	return "malformed event: " + e.Reason
}
