package reqtiming

import (
	"strconv"
	"strings"
	"time"
)

// Line is one request record. Fields render positionally, space separated;
// the ": description[ detail]" suffix appears only when Failed is set.
type Line struct {
	Client      string
	At          time.Time
	Method      string
	Path        string
	Elapsed     time.Duration
	Status      int
	Failed      bool
	Description string
	Detail      string
}

// Millis is Elapsed truncated to whole milliseconds, never negative.
func (ln Line) Millis() int64 {
	if ln.Elapsed <= 0 {
		return 0
	}
	return ln.Elapsed.Milliseconds()
}

func (ln Line) String() string {
	var b strings.Builder
	b.Grow(64 + len(ln.Path) + len(ln.Description) + len(ln.Detail))
	b.WriteString(ln.Client)
	b.WriteString(" [")
	b.WriteString(ln.At.Format(time.RFC3339))
	b.WriteString("] ")
	b.WriteString(ln.Method)
	b.WriteByte(' ')
	b.WriteString(ln.Path)
	b.WriteString(" - ")
	b.WriteString(strconv.FormatInt(ln.Millis(), 10))
	b.WriteString("ms ")
	b.WriteString(strconv.Itoa(ln.Status))
	b.WriteString(ln.suffix())
	return b.String()
}

func (ln Line) suffix() string {
	if !ln.Failed {
		return ""
	}
	s := ": " + ln.Description
	if ln.Detail != "" {
		s += " " + ln.Detail
	}
	return s
}
