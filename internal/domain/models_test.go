package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseMethodAcceptsSupportedSet(t *testing.T) {
	for _, in := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		m, err := ParseMethod(in)
		if err != nil {
			t.Fatalf("ParseMethod(%q) error: %v", in, err)
		}
		if m.String() != in {
			t.Fatalf("ParseMethod(%q) = %q", in, m)
		}
	}
}

func TestParseMethodRejectsEverythingElse(t *testing.T) {
	for _, in := range []string{"", "get", "Post", "TRACE", "HEAD", "OPTIONS", " GET"} {
		if _, err := ParseMethod(in); !errors.Is(err, ErrInvalidMethod) {
			t.Fatalf("ParseMethod(%q) err = %v, want ErrInvalidMethod", in, err)
		}
	}
}

func TestInvocationWireShape(t *testing.T) {
	var inv Invocation
	raw := `{"url":"https://example.com","payload":{"method":"POST","headers":{"A":"1"},"body":""}}`
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !inv.Payload.HasBody() || *inv.Payload.Body != "" {
		t.Fatalf("empty body should be present, got %#v", inv.Payload.Body)
	}

	if err := json.Unmarshal([]byte(`{"url":"u","payload":{"method":"GET","headers":{},"body":null}}`), &inv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if inv.Payload.HasBody() {
		t.Fatalf("null body should be absent")
	}

	out, err := json.Marshal(ResponseRecord{Output: "x", Status: 201, ContentType: "text/plain", Headers: map[string]string{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"output"`, `"status":201`, `"contentType"`, `"headers"`} {
		if !strings.Contains(string(out), key) {
			t.Fatalf("record %s missing %s", out, key)
		}
	}
}
