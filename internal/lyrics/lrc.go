// Package lyrics parses lyrics text returned by the metadata service.
// Text may be LRC (timestamped) or plain; both yield a list of lines.
package lyrics

import (
	"bufio"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Line is a single lyric line. Time is zero for unsynced lyrics.
type Line struct {
	Time time.Duration
	Text string
}

// Lyrics contains parsed lines with optional LRC metadata.
type Lyrics struct {
	Lines  []Line
	Title  string
	Artist string
	Album  string
}

var (
	// [mm:ss], [mm:ss.xx], [mm:ss.xxx] and [mm:ss:xx]
	stampRe = regexp.MustCompile(`\[(\d+):(\d{1,2})(?:[.:](\d{1,3}))?\]`)
	tagRe   = regexp.MustCompile(`^\[([a-zA-Z]+):(.*)\]$`)
)

// Parse parses text as LRC when it carries timestamps, and as plain lines
// otherwise. It never fails; empty text yields no lines.
func Parse(text string) *Lyrics {
	if stampRe.MatchString(text) {
		if l, err := ParseLRC(strings.NewReader(text)); err == nil {
			return l
		}
	}
	l := &Lyrics{}
	for line := range strings.SplitSeq(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			l.Lines = append(l.Lines, Line{Text: line})
		}
	}
	return l
}

// ParseLRC parses LRC lyrics. Lines repeated under several timestamps are
// expanded, and the result is ordered by time.
func ParseLRC(r io.Reader) (*Lyrics, error) {
	l := &Lyrics{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		stamps := stampRe.FindAllStringSubmatchIndex(raw, -1)
		if len(stamps) == 0 {
			l.applyTag(raw)
			continue
		}

		text := strings.TrimSpace(raw[stamps[len(stamps)-1][1]:])
		for _, m := range stamps {
			at, ok := stampAt(raw, m)
			if !ok {
				continue
			}
			l.Lines = append(l.Lines, Line{Time: at, Text: text})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(l.Lines, func(a, b Line) int {
		return int(a.Time - b.Time)
	})
	return l, nil
}

func (l *Lyrics) applyTag(raw string) {
	m := tagRe.FindStringSubmatch(raw)
	if m == nil {
		return
	}
	value := strings.TrimSpace(m[2])
	switch strings.ToLower(m[1]) {
	case "ar":
		l.Artist = value
	case "ti":
		l.Title = value
	case "al":
		l.Album = value
	}
}

// stampAt decodes the timestamp submatch m of s.
func stampAt(s string, m []int) (time.Duration, bool) {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return s[m[2*i]:m[2*i+1]]
	}

	minutes, err := strconv.Atoi(group(1))
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(group(2))
	if err != nil {
		return 0, false
	}
	d := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second

	if frac := group(3); frac != "" {
		n, err := strconv.Atoi(frac)
		if err != nil {
			return 0, false
		}
		// Scale centiseconds (2 digits) and tenths (1 digit) to milliseconds.
		for range 3 - len(frac) {
			n *= 10
		}
		d += time.Duration(n) * time.Millisecond
	}
	return d, true
}

// IsSynced reports whether any line carries a timestamp.
func (l *Lyrics) IsSynced() bool {
	return slices.ContainsFunc(l.Lines, func(line Line) bool { return line.Time > 0 })
}

// LineAt returns the index of the line active at pos, or -1 before the first
// line and for unsynced lyrics.
func (l *Lyrics) LineAt(pos time.Duration) int {
	if !l.IsSynced() {
		return -1
	}
	idx := -1
	for i, line := range l.Lines {
		if line.Time > pos {
			break
		}
		idx = i
	}
	return idx
}
