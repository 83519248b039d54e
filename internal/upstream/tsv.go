package upstream

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Series is a parsed time-series response: one value per timestamp, in
// response order. Values are pointers because the upstream emits empty cells
// for gaps in the record; those must stay null all the way to the store, not
// collapse to zero or disappear.
type Series struct {
	Values     []*float64
	Unit       string
	Timestamps []string
}

// Len returns the number of samples in the series.
func (s Series) Len() int {
	return len(s.Values)
}

// TimeInterval returns the min/max of the series timestamps as an ISO-8601
// interval. The second result is false for an empty series; callers must
// omit the interval entirely rather than emit empty strings.
func (s Series) TimeInterval() (string, bool) {
	if len(s.Timestamps) == 0 {
		return "", false
	}
	min, max := s.Timestamps[0], s.Timestamps[0]
	for _, ts := range s.Timestamps[1:] {
		if ts < min {
			min = ts
		}
		if ts > max {
			max = ts
		}
	}
	return min + "/" + max, true
}

// ParseSeries parses a tab-separated download response. The first row is a
// header whose third column carries the dataset name; the unit is its text
// after the last underscore. Each data row is [station, timestamp, value]
// where an empty value cell is a gap in the record.
//
// A response with no rows at all parses as an empty series: the download API
// returns a header-only body when the start date is blank, and an entirely
// blank body for some unknown dataset codes.
func ParseSeries(raw []byte) (Series, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Series{Unit: "Unknown"}, nil
	}
	if err != nil {
		return Series{}, &ParseError{Reason: err.Error()}
	}
	if len(header) < 3 {
		// Headers without a dataset column come back when the requested
		// dataset code does not exist for the station.
		return Series{}, &ParseError{Reason: "header does not name a dataset, wrong dataset type requested"}
	}

	parts := strings.Split(header[2], "_")
	series := Series{Unit: parts[len(parts)-1]}

	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Series{}, &ParseError{Row: row, Reason: err.Error()}
		}
		if len(record) < 3 {
			return Series{}, &ParseError{Row: row, Reason: "expected at least 3 columns"}
		}

		var value *float64
		if record[2] != "" {
			v, err := strconv.ParseFloat(record[2], 64)
			if err != nil {
				return Series{}, &ParseError{Row: row, Reason: "value " + record[2] + " is not numeric"}
			}
			value = &v
		}

		ts, err := normalizeRowTimestamp(record[1])
		if err != nil {
			return Series{}, err
		}

		series.Values = append(series.Values, value)
		series.Timestamps = append(series.Timestamps, ts)
	}

	return series, nil
}
