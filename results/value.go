package results

import (
	"fmt"
	"time"
)

// Value is a comparable score. Compare orders values best first: a negative
// result means the receiver ranks ahead of other.
type Value interface {
	Compare(other Value) int
	Behind(winner Value) Gap
	String() string
}

// Gap is the signed distance between a value and the winner's.
type Gap struct {
	Time  time.Duration `json:"time"`
	Count float64       `json:"count,omitempty"`
}

// Neg flips the sign of the gap.
func (g Gap) Neg() Gap {
	return Gap{Time: -g.Time, Count: -g.Count}
}

func (g Gap) String() string {
	if g.Count != 0 {
		return fmt.Sprintf("%+g/%s", g.Count, fmtSigned(g.Time))
	}
	return fmtSigned(g.Time)
}

// Duration is an elapsed time; shorter is better.
type Duration time.Duration

func (d Duration) Compare(other Value) int {
	o, ok := other.(Duration)
	if !ok {
		return 0
	}
	return cmp3(int64(d), int64(o))
}

func (d Duration) Behind(winner Value) Gap {
	w, _ := winner.(Duration)
	return Gap{Time: time.Duration(d - w)}
}

func (d Duration) String() string { return FormatDuration(time.Duration(d)) }

// Laps counts completed rounds; more is better.
type Laps int

func (l Laps) Compare(other Value) int {
	o, ok := other.(Laps)
	if !ok {
		return 0
	}
	return cmp3(int64(o), int64(l))
}

func (l Laps) Behind(winner Value) Gap {
	w, _ := winner.(Laps)
	return Gap{Count: float64(l - w)}
}

func (l Laps) String() string { return fmt.Sprintf("%d", int(l)) }

// RunCount is the 24h relay score: more valid runs rank first, ties go to
// the earlier last valid finish.
type RunCount struct {
	Runs int       `json:"runs"`
	Last time.Time `json:"last"`
}

func (r RunCount) Compare(other Value) int {
	o, ok := other.(RunCount)
	if !ok {
		return 0
	}
	if c := cmp3(int64(o.Runs), int64(r.Runs)); c != 0 {
		return c
	}
	return r.Last.Compare(o.Last)
}

func (r RunCount) Behind(winner Value) Gap {
	w, _ := winner.(RunCount)
	return Gap{Count: float64(r.Runs - w.Runs), Time: r.Last.Sub(w.Last)}
}

func (r RunCount) String() string {
	return fmt.Sprintf("%d (%s)", r.Runs, r.Last.Format(time.TimeOnly))
}

// KmCount is the 24h relay score summing performance kilometres instead of
// counting runs.
type KmCount struct {
	Km   float64   `json:"km"`
	Last time.Time `json:"last"`
}

func (k KmCount) Compare(other Value) int {
	o, ok := other.(KmCount)
	if !ok {
		return 0
	}
	switch {
	case k.Km > o.Km:
		return -1
	case k.Km < o.Km:
		return 1
	}
	return k.Last.Compare(o.Last)
}

func (k KmCount) Behind(winner Value) Gap {
	w, _ := winner.(KmCount)
	return Gap{Count: k.Km - w.Km, Time: k.Last.Sub(w.Last)}
}

func (k KmCount) String() string {
	return fmt.Sprintf("%.1f km (%s)", k.Km, k.Last.Format(time.TimeOnly))
}

// Pace is time per performance kilometre; lower is better.
type Pace time.Duration

func (p Pace) Compare(other Value) int {
	o, ok := other.(Pace)
	if !ok {
		return 0
	}
	return cmp3(int64(p), int64(o))
}

func (p Pace) Behind(winner Value) Gap {
	w, _ := winner.(Pace)
	return Gap{Time: time.Duration(p - w)}
}

func (p Pace) String() string { return FormatDuration(time.Duration(p)) + "/km" }

// Timestamp is an instant; earlier ranks first. The zero value is the
// sentinel minimum used when nothing was punched yet.
type Timestamp time.Time

func (t Timestamp) Compare(other Value) int {
	o, ok := other.(Timestamp)
	if !ok {
		return 0
	}
	return time.Time(t).Compare(time.Time(o))
}

func (t Timestamp) Behind(winner Value) Gap {
	w, _ := winner.(Timestamp)
	return Gap{Time: time.Time(t).Sub(time.Time(w))}
}

func (t Timestamp) String() string {
	if time.Time(t).IsZero() {
		return ""
	}
	return time.Time(t).Format(time.TimeOnly)
}

// FormatDuration renders d as h:mm:ss, or m:ss below one hour.
func FormatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	var out string
	if h > 0 {
		out = fmt.Sprintf("%d:%02d:%02d", h, m, s)
	} else {
		out = fmt.Sprintf("%d:%02d", m, s)
	}
	if neg {
		return "-" + out
	}
	return out
}

func fmtSigned(d time.Duration) string {
	if d >= 0 {
		return "+" + FormatDuration(d)
	}
	return FormatDuration(d)
}

func cmp3(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
