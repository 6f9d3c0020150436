package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/natefinch/atomic"

	"github.com/gogpu/patchstream"
)

// Report is the JSON summary of a run.
type Report struct {
	Level  string        `json:"level"`
	Cells  int           `json:"cells"`
	Frames []FrameRecord `json:"frames"`
	Totals Totals        `json:"totals"`
}

// FrameRecord is one frame of the run.
type FrameRecord struct {
	Frame      uint64 `json:"frame"`
	Visible    int    `json:"visible"`
	Scheduled  int    `json:"scheduled"`
	Deferred   int    `json:"deferred,omitempty"`
	Unreserved int    `json:"unreserved,omitempty"`
	Draws      int    `json:"draws"`
	Triangles  int    `json:"triangles"`
	Reset      bool   `json:"reset,omitempty"`
}

// Totals are the streamer counters at the end of the run.
type Totals struct {
	Resident   int     `json:"resident"`
	Scheduled  uint64  `json:"scheduled"`
	Succeeded  uint64  `json:"succeeded"`
	Failed     uint64  `json:"failed"`
	Stale      uint64  `json:"stale"`
	Unreserved uint64  `json:"unreserved"`
	Disposed   uint64  `json:"disposed"`
	HitRate    float64 `json:"hit_rate"`
	Executed   uint64  `json:"executed"`
	Stolen     uint64  `json:"stolen"`
}

func totalsFrom(st patchstream.Stats) Totals {
	return Totals{
		Resident:   st.Resident,
		Scheduled:  st.Scheduled,
		Succeeded:  st.Succeeded,
		Failed:     st.Failed,
		Stale:      st.Stale,
		Unreserved: st.Unreserved,
		Disposed:   st.Disposed,
		HitRate:    st.Cache.HitRate,
		Executed:   st.Scheduler.Executed,
		Stolen:     st.Scheduler.Stolen,
	}
}

// writeReport replaces path with the JSON report in one step, so readers
// never see a partial file.
func writeReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
