package upstream

import "time"

const (
	// windowTimeLayout is the date format the OWRD download API expects for
	// the start_date and end_date query parameters.
	windowTimeLayout = "1/2/2006 3:04:05 PM"

	// Data rows come back in one of two formats depending on the dataset:
	// with a time of day for instantaneous series, without for daily ones.
	rowTimeLayout = "01-02-2006 15:04"
	rowDateLayout = "01-02-2006"
	isoTimeLayout = "2006-01-02T15:04:05"
)

// StartOfRecord is the fixed epoch used as the window start of a full load.
// It predates every gauge in the catalog, so a load from here returns the
// complete period of record.
const StartOfRecord = "9/25/1850 12:00:00 AM"

// ToUpstreamTime formats a time the way the OWRD download API expects it.
func ToUpstreamTime(t time.Time) string {
	return t.Format(windowTimeLayout)
}

// FromUpstreamTime parses an OWRD-format date string.
func FromUpstreamTime(s string) (time.Time, error) {
	t, err := time.Parse(windowTimeLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Value: s}
	}
	return t, nil
}

// ValidateUpstreamTime checks a date string against the OWRD format. The
// empty string is allowed: the download API treats it as an open window
// bound. Anything else that fails to parse is a ValidationError rather than
// silently truncated data downstream.
func ValidateUpstreamTime(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(windowTimeLayout, s); err != nil {
		return &ValidationError{Value: s}
	}
	return nil
}

// normalizeRowTimestamp converts a data-row timestamp to ISO-8601 with a Z
// suffix, accepting the two formats the upstream emits.
func normalizeRowTimestamp(s string) (string, error) {
	for _, layout := range []string{rowTimeLayout, rowDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoTimeLayout) + "Z", nil
		}
	}
	return "", &ParseError{Reason: "timestamp " + s + " does not match any known format"}
}
