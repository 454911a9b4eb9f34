package activity

import (
	"fmt"
	"strings"
	"time"
)

// Window — разрешённый интервал времени суток [start, end) в заданной зоне.
// Если start > end, интервал переходит через полночь; start == end означает круглосуточно.
type Window struct {
	start time.Duration
	end   time.Duration
	loc   *time.Location
}

// ParseWindow разбирает границы формата ЧЧ:ММ.
func ParseWindow(start, end string, loc *time.Location) (Window, error) {
	from, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("начало окна %q: %w", start, err)
	}
	to, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("конец окна %q: %w", end, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return Window{start: from, end: to, loc: loc}, nil
}

func parseClock(value string) (time.Duration, error) {
	tm, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return time.Duration(tm.Hour())*time.Hour + time.Duration(tm.Minute())*time.Minute, nil
}

// Contains сообщает, попадает ли момент t в окно по местному времени.
func (w Window) Contains(t time.Time) bool {
	loc := w.loc
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	offset := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	switch {
	case w.start == w.end:
		return true
	case w.start < w.end:
		return offset >= w.start && offset < w.end
	default:
		return offset >= w.start || offset < w.end
	}
}

// Location возвращает часовой пояс окна.
func (w Window) Location() *time.Location {
	if w.loc == nil {
		return time.Local
	}
	return w.loc
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s %s", formatClock(w.start), formatClock(w.end), w.Location())
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
