package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cgs-earth/hydrosync/internal/upstream"
)

// watermarkDoc is the persisted boundary of already-synchronized time.
type watermarkDoc struct {
	DataStart string `json:"data_start"`
	DataEnd   string `json:"data_end"`
}

// Watermark persists the last successfully synchronized window so an update
// run can start exactly where the previous run ended: no gap, no overlap, no
// re-fetch of history.
//
// There is no concurrency protection; two orchestrator runs writing the same
// watermark file is a documented hazard, not a supported configuration.
type Watermark struct {
	path string
}

// NewWatermark opens the watermark file, creating it with empty bounds on
// first use.
func NewWatermark(path string) (*Watermark, error) {
	w := &Watermark{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := w.write(watermarkDoc{}); err != nil {
			return nil, fmt.Errorf("initialize watermark: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat watermark: %w", err)
	}
	return w, nil
}

// Range returns the persisted window bounds. Both are empty strings before
// the first successful run. Malformed dates fail immediately rather than
// feeding a bad window into the next fetch.
func (w *Watermark) Range() (start, end string, err error) {
	doc, err := w.read()
	if err != nil {
		return "", "", err
	}
	if err := upstream.ValidateUpstreamTime(doc.DataStart); err != nil {
		return "", "", err
	}
	if err := upstream.ValidateUpstreamTime(doc.DataEnd); err != nil {
		return "", "", err
	}
	return doc.DataStart, doc.DataEnd, nil
}

// UpdateRange overwrites the persisted window. The last write wins.
func (w *Watermark) UpdateRange(start, end string) error {
	if err := upstream.ValidateUpstreamTime(start); err != nil {
		return err
	}
	if err := upstream.ValidateUpstreamTime(end); err != nil {
		return err
	}
	return w.write(watermarkDoc{DataStart: start, DataEnd: end})
}

func (w *Watermark) read() (watermarkDoc, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return watermarkDoc{}, fmt.Errorf("read watermark: %w", err)
	}
	var doc watermarkDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return watermarkDoc{}, fmt.Errorf("decode watermark: %w", err)
	}
	return doc, nil
}

func (w *Watermark) write(doc watermarkDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(w.path, data, 0o644)
}
