package results

import "github.com/padraicbc/oresults/models"

// Mark classifies one line of a validation diff.
type Mark string

const (
	MarkOK         Mark = "ok"
	MarkMissing    Mark = "missing"
	MarkAdditional Mark = "additional"
	MarkIgnored    Mark = "ignored"
	// MarkSpecial is an unmatched punch on a reserved station (start, finish...).
	MarkSpecial Mark = ""
)

// DiffEntry is one line of a validation diff. Missing entries carry only the
// control; all other entries carry the punch.
type DiffEntry struct {
	Mark    Mark            `json:"mark"`
	Punch   *models.Punch   `json:"punch,omitempty"`
	Control *models.Control `json:"control,omitempty"`
}

func (d DiffEntry) time() (t int64, ok bool) {
	if d.Punch == nil {
		return 0, false
	}
	pt := d.Punch.PunchTime()
	if pt == nil {
		return 0, false
	}
	return pt.UnixNano(), true
}

func matches(p *models.Punch, c *models.Control) bool {
	pc := p.Control()
	return pc != nil && c != nil && pc.ID == c.ID
}

// Diff aligns punches against the required controls using the longest common
// subsequence. At equal table values the backtrack reports a missing control
// rather than an additional punch.
func Diff(punches []*models.Punch, controls []*models.Control) []DiffEntry {
	m, n := len(punches), len(controls)

	if m == n {
		exact := true
		for i := range punches {
			if !matches(punches[i], controls[i]) {
				exact = false
				break
			}
		}
		if exact {
			out := make([]DiffEntry, m)
			for i, p := range punches {
				out[i] = DiffEntry{Mark: MarkOK, Punch: p, Control: controls[i]}
			}
			return out
		}
	}

	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if matches(punches[i-1], controls[j-1]) {
				lcs[i][j] = lcs[i-1][j-1] + 1
			} else {
				lcs[i][j] = max(lcs[i][j-1], lcs[i-1][j])
			}
		}
	}

	rev := make([]DiffEntry, 0, m+n)
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && matches(punches[i-1], controls[j-1]):
			rev = append(rev, DiffEntry{Mark: MarkOK, Punch: punches[i-1], Control: controls[j-1]})
			i, j = i-1, j-1
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			rev = append(rev, DiffEntry{Mark: MarkMissing, Control: controls[j-1]})
			j--
		default:
			p := punches[i-1]
			mark := MarkAdditional
			if models.IsSpecialStation(p.StationID) {
				mark = MarkSpecial
			}
			rev = append(rev, DiffEntry{Mark: mark, Punch: p, Control: p.Control()})
			i--
		}
	}

	out := make([]DiffEntry, len(rev))
	for k, e := range rev {
		out[len(rev)-1-k] = e
	}
	return out
}

// insertIgnored places each ignored punch before the first entry whose punch
// is strictly later. Entries without a time are skipped while searching and
// ignored punches without a time go to the end.
func insertIgnored(diff []DiffEntry, ignored []*models.Punch) []DiffEntry {
	out := diff
	for _, p := range ignored {
		entry := DiffEntry{Mark: MarkIgnored, Punch: p, Control: p.Control()}
		pt := p.PunchTime()
		pos := len(out)
		if pt != nil {
			for k, e := range out {
				if t, ok := e.time(); ok && t > pt.UnixNano() {
					pos = k
					break
				}
			}
		}
		out = append(out, DiffEntry{})
		copy(out[pos+1:], out[pos:])
		out[pos] = entry
	}
	return out
}

func hasMissing(diff []DiffEntry) bool {
	for _, e := range diff {
		if e.Mark == MarkMissing {
			return true
		}
	}
	return false
}
