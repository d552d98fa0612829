package publishers

import "testing"

func compileMatch(t *testing.T, m Match) matcher {
	t.Helper()
	m.normalize()
	compiled, err := m.compile()
	if err != nil {
		t.Fatalf("compile %#v: %v", m, err)
	}
	return compiled
}

func TestMatchOutcome(t *testing.T) {
	ok := ExchangeEvent{Method: "GET", Status: 200}
	failed := ExchangeEvent{Method: "GET", Error: "dial tcp: refused"}

	cases := []struct {
		outcome    string
		ok, failed bool
	}{
		{"", true, true},
		{"any", true, true},
		{"OK", true, false},
		{"error", false, true},
	}
	for _, tc := range cases {
		m := compileMatch(t, Match{Outcome: tc.outcome})
		if m.accepts(ok) != tc.ok || m.accepts(failed) != tc.failed {
			t.Fatalf("outcome %q: ok=%v failed=%v", tc.outcome, m.accepts(ok), m.accepts(failed))
		}
	}
}

func TestMatchStatusForms(t *testing.T) {
	m := compileMatch(t, Match{Status: []string{"5XX", "404", "420-429"}})

	for status, want := range map[uint16]bool{
		200: false, 404: true, 403: false, 420: true, 425: true, 429: true, 430: false, 500: true, 599: true,
	} {
		if got := m.accepts(ExchangeEvent{Status: status}); got != want {
			t.Fatalf("status %d: accepts=%v want %v", status, got, want)
		}
	}
	if m.accepts(ExchangeEvent{Error: "timeout"}) {
		t.Fatalf("status filter must not match failed invocations")
	}
}

func TestMatchMethods(t *testing.T) {
	m := compileMatch(t, Match{Methods: []string{" post", "DELETE"}})
	if !m.accepts(ExchangeEvent{Method: "POST", Status: 201}) {
		t.Fatalf("POST should match")
	}
	if m.accepts(ExchangeEvent{Method: "GET", Status: 200}) {
		t.Fatalf("GET should not match")
	}
}

func TestMatchRejectsInvalidEntries(t *testing.T) {
	for _, m := range []Match{
		{Outcome: "sometimes"},
		{Status: []string{"6xx"}},
		{Status: []string{"abc"}},
		{Status: []string{"500-400"}},
		{Status: []string{"99"}},
		{Status: []string{"200-700"}},
	} {
		m.normalize()
		if _, err := m.compile(); err == nil {
			t.Fatalf("expected error for %#v", m)
		}
	}
}

func TestZeroMatcherAcceptsEverything(t *testing.T) {
	var m matcher
	if !m.accepts(ExchangeEvent{}) || !m.accepts(ExchangeEvent{Error: "x", Method: "TRACE"}) {
		t.Fatalf("zero matcher should accept all events")
	}
}
