package publishers

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome filters.
const (
	OutcomeAny   = "any"
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Match selects which exchanges a sink receives. Empty fields match
// everything. Status entries are exact codes ("404"), classes ("5xx") or
// inclusive ranges ("400-499"); a status filter never matches a failed
// invocation since it has no status.
type Match struct {
	Outcome string   `json:"outcome" yaml:"outcome"`
	Status  []string `json:"status" yaml:"status"`
	Methods []string `json:"methods" yaml:"methods"`
}

func (m *Match) normalize() {
	m.Outcome = strings.ToLower(strings.TrimSpace(m.Outcome))
	if m.Outcome == "" {
		m.Outcome = OutcomeAny
	}
	for i, s := range m.Status {
		m.Status[i] = strings.ToLower(strings.TrimSpace(s))
	}
	for i, s := range m.Methods {
		m.Methods[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

type statusRange struct{ lo, hi uint16 }

// matcher is the compiled form of Match. The zero value accepts every event.
type matcher struct {
	outcome string
	status  []statusRange
	methods map[string]bool
}

func (m Match) compile() (matcher, error) {
	out := matcher{outcome: m.Outcome}
	switch m.Outcome {
	case "", OutcomeAny, OutcomeOK, OutcomeError:
	default:
		return matcher{}, fmt.Errorf("match.outcome must be any, ok or error, got %q", m.Outcome)
	}

	for _, s := range m.Status {
		r, err := parseStatusRange(s)
		if err != nil {
			return matcher{}, err
		}
		out.status = append(out.status, r)
	}

	if len(m.Methods) > 0 {
		out.methods = make(map[string]bool, len(m.Methods))
		for _, method := range m.Methods {
			out.methods[method] = true
		}
	}
	return out, nil
}

func parseStatusRange(s string) (statusRange, error) {
	bad := fmt.Errorf("match.status entry %q is not a code, class or range", s)

	if len(s) == 3 && strings.HasSuffix(s, "xx") {
		d := s[0]
		if d < '1' || d > '5' {
			return statusRange{}, bad
		}
		base := uint16(d-'0') * 100
		return statusRange{lo: base, hi: base + 99}, nil
	}

	lo, hi, isRange := strings.Cut(s, "-")
	if !isRange {
		hi = lo
	}
	from, err1 := strconv.ParseUint(strings.TrimSpace(lo), 10, 16)
	to, err2 := strconv.ParseUint(strings.TrimSpace(hi), 10, 16)
	if err1 != nil || err2 != nil || from < 100 || to > 599 || from > to {
		return statusRange{}, bad
	}
	return statusRange{lo: uint16(from), hi: uint16(to)}, nil
}

func (m matcher) accepts(evt ExchangeEvent) bool {
	failed := evt.Error != ""
	switch m.outcome {
	case OutcomeOK:
		if failed {
			return false
		}
	case OutcomeError:
		if !failed {
			return false
		}
	}

	if m.methods != nil && !m.methods[evt.Method] {
		return false
	}

	if len(m.status) == 0 {
		return true
	}
	if failed {
		return false
	}
	for _, r := range m.status {
		if evt.Status >= r.lo && evt.Status <= r.hi {
			return true
		}
	}
	return false
}
