package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cgs-earth/hydrosync/internal/upstream"
)

func newTestWatermark(t *testing.T) *Watermark {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watermark.json")
	w, err := NewWatermark(path)
	if err != nil {
		t.Fatalf("NewWatermark failed: %v", err)
	}
	return w
}

func TestWatermarkInitializesEmpty(t *testing.T) {
	w := newTestWatermark(t)

	start, end, err := w.Range()
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if start != "" || end != "" {
		t.Errorf("fresh watermark = (%q, %q), want empty bounds", start, end)
	}
}

func TestWatermarkRoundTrip(t *testing.T) {
	w := newTestWatermark(t)

	if err := w.UpdateRange("01/01/2023 12:00:00 AM", "01/15/2023 12:00:00 AM"); err != nil {
		t.Fatalf("UpdateRange failed: %v", err)
	}

	start, end, err := w.Range()
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if start != "01/01/2023 12:00:00 AM" || end != "01/15/2023 12:00:00 AM" {
		t.Errorf("round trip = (%q, %q)", start, end)
	}
}

func TestWatermarkLastWriteWins(t *testing.T) {
	w := newTestWatermark(t)

	if err := w.UpdateRange("01/01/2023 12:00:00 AM", "01/15/2023 12:00:00 AM"); err != nil {
		t.Fatalf("first UpdateRange failed: %v", err)
	}
	if err := w.UpdateRange("01/15/2023 12:00:00 AM", "02/01/2023 12:00:00 AM"); err != nil {
		t.Fatalf("second UpdateRange failed: %v", err)
	}

	start, end, err := w.Range()
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if start != "01/15/2023 12:00:00 AM" || end != "02/01/2023 12:00:00 AM" {
		t.Errorf("got (%q, %q), want the second write", start, end)
	}
}

func TestWatermarkRejectsDateOnlyBound(t *testing.T) {
	w := newTestWatermark(t)

	err := w.UpdateRange("09/25/2024", "09/26/2024 12:00:00 AM")
	var verr *upstream.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestWatermarkRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermark.json")
	w, err := NewWatermark(path)
	if err != nil {
		t.Fatalf("NewWatermark failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"data_start":"garbage","data_end":""}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := w.Range(); err == nil {
		t.Error("corrupt bounds accepted")
	}

	// Reopening an existing file must not clobber it.
	if _, err := NewWatermark(path); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"data_start":"garbage","data_end":""}` {
		t.Errorf("reopen rewrote the file: %s", data)
	}
}
