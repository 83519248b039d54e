package upstream

import "fmt"

// RetrievalError reports a failed request against the upstream OWRD services:
// a non-success status, an embedded upstream error marker, or a response that
// is missing expected content for a non-empty request.
type RetrievalError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("upstream request %s failed (status %d): %s", e.URL, e.StatusCode, e.Reason)
}

// ParseError reports a malformed upstream time-series response.
type ParseError struct {
	Row    int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse tsv row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("parse tsv: %s", e.Reason)
}

// ValidationError reports a date string that does not match the format the
// OWRD download API expects.
type ValidationError struct {
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("date string %q does not match the expected format %q", e.Value, windowTimeLayout)
}
