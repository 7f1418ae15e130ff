// Package lrc parses LRC lyric timing files into sorted, timed records.
package lrc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// Parse converts lines of an LRC file into records sorted by offset.
// Lines that do not begin with a recognised timestamp are dropped.
func Parse(lines []string) []Record {
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		rec, ok := parseLine(line)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Offset < records[j].Offset
	})
	return records
}

func parseLine(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "[") {
		return Record{}, false
	}

	match := DotTimestampPattern.FindStringSubmatch(line)
	if match == nil {
		match = ColonTimestampPattern.FindStringSubmatch(line)
	}
	if match == nil {
		return Record{}, false
	}

	offset, ok := offsetOf(match[1], match[2], match[3])
	if !ok {
		return Record{}, false
	}
	return Record{
		Offset: offset,
		Text:   strings.TrimSpace(line[len(match[0]):]),
	}, true
}

// offsetOf computes minutes*60 + seconds + hundredths/100 in whole
// milliseconds so the result is exact.
func offsetOf(minutes, seconds, hundredths string) (time.Duration, bool) {
	total := int64(0)
	for _, part := range []struct {
		digits string
		unit   int64
	}{
		{minutes, 60_000},
		{seconds, 1_000},
		{hundredths, 10},
	} {
		n, err := strconv.ParseInt(part.digits, 10, 64)
		if err != nil || n > maxMillis/part.unit {
			return 0, false
		}
		ms := n * part.unit
		if total > maxMillis-ms {
			return 0, false
		}
		total += ms
	}
	return time.Duration(total) * time.Millisecond, true
}

// ParseTags extracts the ti/ar/al/by/offset metadata tags. Unknown tags are
// ignored.
func ParseTags(lines []string) Tags {
	var tags Tags
	for _, line := range lines {
		match := TagPattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[2])
		switch strings.ToLower(match[1]) {
		case "ti":
			tags.Title = value
		case "ar":
			tags.Artist = value
		case "al":
			tags.Album = value
		case "by":
			tags.By = value
		case "offset":
			if n, err := strconv.Atoi(value); err == nil {
				tags.Offset = n
			}
		}
	}
	return tags
}

// ParseReader reads all lines from r and parses them. Only read errors are
// returned.
func ParseReader(r io.Reader) (*Lyrics, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	return build(lines), nil
}

// Load reads and parses the LRC file at path.
func Load(path string) (*Lyrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lyrics %q: %w", path, err)
	}
	defer f.Close()

	lyrics, err := ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("read lyrics %q: %w", path, err)
	}
	lyrics.Path = path
	return lyrics, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, strings.TrimPrefix(scanner.Text(), "\ufeff"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func build(lines []string) *Lyrics {
	records := Parse(lines)
	tags := ParseTags(lines)
	if dropped := countDropped(lines); dropped > 0 {
		slog.Debug("lrc lines without timestamp dropped", "count", dropped)
	}
	return &Lyrics{
		Tags:    tags,
		Records: applyOffset(records, tags.Offset),
	}
}

func countDropped(lines []string) int {
	dropped := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "[") {
			continue
		}
		if _, ok := parseLine(trimmed); !ok {
			dropped++
		}
	}
	return dropped
}

func applyOffset(records []Record, offsetMillis int) []Record {
	if offsetMillis == 0 {
		return records
	}
	ms := int64(offsetMillis)
	if ms > maxMillis {
		ms = maxMillis
	} else if ms < -maxMillis {
		ms = -maxMillis
	}
	shift := time.Duration(ms) * time.Millisecond
	limit := time.Duration(maxMillis) * time.Millisecond
	for i := range records {
		switch {
		case shift > 0:
			records[i].Offset -= shift
			if records[i].Offset < 0 {
				records[i].Offset = 0
			}
		case records[i].Offset > limit+shift:
			records[i].Offset = limit
		default:
			records[i].Offset -= shift
		}
	}
	// A uniform shift keeps the order; clamping only creates ties.
	return records
}
