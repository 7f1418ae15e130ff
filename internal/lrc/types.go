package lrc

import (
	"fmt"
	"time"
)

// Record is one timed line of a lyric file.
type Record struct {
	Offset time.Duration `json:"offset"`
	Text   string        `json:"text"`
}

// Seconds returns the offset as fractional seconds.
func (r Record) Seconds() float64 {
	return r.Offset.Seconds()
}

// Timestamp renders the offset as m:ss.cc.
func (r Record) Timestamp() string {
	cs := int64(r.Offset / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d.%02d", cs/6000, (cs/100)%60, cs%100)
}

type Tags struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	By     string `json:"by,omitempty"`
	// Offset is the [offset:] tag in milliseconds. Positive values make
	// lines fire earlier.
	Offset int `json:"offset,omitempty"`
}

// Lyrics is a loaded lyric file: its metadata and its sorted records.
type Lyrics struct {
	Path    string   `json:"path,omitempty"`
	Tags    Tags     `json:"tags"`
	Records []Record `json:"records"`
}

func (l *Lyrics) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Records)
}
