package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/recipeui/fetchbridge/internal/domain"
)

func writeSinks(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write sinks file: %v", err)
	}
	return path
}

func TestLoadSinksYAMLWithMatchAndDisabled(t *testing.T) {
	path := writeSinks(t, "sinks.yaml", `
sinks:
  - id: failures
    type: http
    match:
      outcome: error
    http:
      url: https://hooks.example.com/failures
  - id: server-errors
    type: sqs
    match:
      status: ["5xx"]
      methods: [post, put]
    sqs:
      uri: http://localhost:4566/000000000000/exchanges
      region: us-east-1
      endpoint: http://localhost:4566
      access_key_id: test
      secret_access_key: test
  - id: off
    type: http
    enabled: false
    http:
      url: https://example.com
`)

	cfgs, err := LoadSinks(path)
	if err != nil {
		t.Fatalf("LoadSinks: %v", err)
	}
	if len(cfgs) != 3 {
		t.Fatalf("expected 3 sinks, got %d", len(cfgs))
	}

	hook := cfgs[0]
	if hook.HTTP.Method != "POST" || hook.HTTP.TimeoutSeconds != 5 || hook.Match.Outcome != OutcomeError {
		t.Fatalf("http defaults not applied: %#v %#v", hook.HTTP, hook.Match)
	}
	queue := cfgs[1]
	if queue.SQS.Endpoint != "http://localhost:4566" || queue.SQS.AccessKeyID != "test" {
		t.Fatalf("inline aws access not decoded: %#v", queue.SQS)
	}
	if strings.Join(queue.Match.Methods, ",") != "POST,PUT" {
		t.Fatalf("methods = %v", queue.Match.Methods)
	}

	enabled := EnabledSinks(cfgs)
	if len(enabled) != 2 || enabled[1].ID != "server-errors" {
		t.Fatalf("enabled = %#v", enabled)
	}
}

func TestLoadSinksJSON(t *testing.T) {
	path := writeSinks(t, "sinks.json", `{"sinks":[
  {"id":" audit ","type":"SNS","sns":{"topic_arn":"arn:aws:sns:us-east-1:1:t","region":"us-east-1","endpoint":"http://localhost:4566"}},
  {"id":"ps","type":"pubsub","match":{"status":["200-299"]},"pubsub":{"project_id":"p","topic":"t"}}
]}`)

	cfgs, err := LoadSinks(path)
	if err != nil {
		t.Fatalf("LoadSinks: %v", err)
	}
	if cfgs[0].ID != "audit" || cfgs[0].Type != TypeSNS || cfgs[0].SNS.Endpoint != "http://localhost:4566" {
		t.Fatalf("sns sink = %#v %#v", cfgs[0], cfgs[0].SNS)
	}
	if cfgs[1].Match.Status[0] != "200-299" {
		t.Fatalf("match = %#v", cfgs[1].Match)
	}
}

func TestLoadSinksRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"empty":        "sinks: []\n",
		"no id":        "sinks:\n  - type: http\n    http: {url: u}\n",
		"duplicate id": "sinks:\n  - {id: a, type: http, http: {url: u}}\n  - {id: a, type: http, http: {url: v}}\n",
		"unknown type": "sinks:\n  - {id: a, type: kafka}\n",
		"bad match":    "sinks:\n  - {id: a, type: http, http: {url: u}, match: {status: [\"7xx\"]}}\n",
		"not yaml":     "sinks: [\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadSinks(writeSinks(t, "sinks.yaml", raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := LoadSinks(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSinkValidateReportsMissingFields(t *testing.T) {
	cases := []struct {
		cfg  SinkConfig
		want string
	}{
		{SinkConfig{ID: "h", Type: TypeHTTP}, "http block is required"},
		{SinkConfig{ID: "s", Type: TypeSNS, SNS: &SNSSinkConfig{Region: "us-east-1"}}, "sns.topic_arn"},
		{SinkConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubSinkConfig{Topic: "t"}}, "pubsub.project_id"},
		{SinkConfig{ID: "q", Type: TypeSQS, SQS: &SQSSinkConfig{}}, "sqs.uri, sqs.region"},
		{SinkConfig{ID: "x"}, "type is required"},
	}
	for _, tc := range cases {
		err := tc.cfg.validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("validate(%s) = %v, want %q", tc.cfg.ID, err, tc.want)
		}
	}
}

func TestNewExchangeEventFromJournalEntry(t *testing.T) {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := NewExchangeEvent(domain.Exchange{
		ID:          "id",
		URL:         "https://user:pw@api.example.com:8443/v1/search?api_key=secret#frag",
		Method:      "GET",
		Status:      200,
		Title:       "Search",
		OutputBytes: 42,
		DurationMs:  250,
		StartedAt:   started,
	})
	if evt.URL != "https://api.example.com:8443/v1/search" || evt.Host != "api.example.com" {
		t.Fatalf("URL = %q host = %q", evt.URL, evt.Host)
	}
	if evt.Title != "Search" || evt.OutputBytes != 42 || evt.StatusClass() != "2xx" || evt.Outcome() != OutcomeOK {
		t.Fatalf("event = %#v", evt)
	}
	if !evt.CompletedAt.Equal(started.Add(250 * time.Millisecond)) {
		t.Fatalf("CompletedAt = %s", evt.CompletedAt)
	}
}
