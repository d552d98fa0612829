package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sink types.
const (
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
)

// SinkConfig is one audit sink entry of the sinks file.
type SinkConfig struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	Match   Match  `json:"match" yaml:"match"`

	HTTP   *HTTPSinkConfig   `json:"http" yaml:"http"`
	SQS    *SQSSinkConfig    `json:"sqs" yaml:"sqs"`
	SNS    *SNSSinkConfig    `json:"sns" yaml:"sns"`
	PubSub *PubSubSinkConfig `json:"pubsub" yaml:"pubsub"`
}

// IsEnabled treats a missing flag as enabled.
func (c SinkConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// HTTPSinkConfig posts events as JSON to a webhook.
type HTTPSinkConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AWSAccess overrides the endpoint and credentials, mostly for localstack.
type AWSAccess struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SQSSinkConfig sends events to a queue. FIFO queues (".fifo") are grouped
// by target host and deduplicated by invocation id.
type SQSSinkConfig struct {
	QueueURL  string `json:"uri" yaml:"uri"`
	Region    string `json:"region" yaml:"region"`
	AWSAccess `yaml:",inline"`
}

// SNSSinkConfig publishes events to a topic, with the same FIFO handling as SQS.
type SNSSinkConfig struct {
	TopicARN  string `json:"topic_arn" yaml:"topic_arn"`
	Region    string `json:"region" yaml:"region"`
	AWSAccess `yaml:",inline"`
}

// PubSubSinkConfig publishes events to a Pub/Sub topic.
type PubSubSinkConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

type sinksFile struct {
	Sinks []SinkConfig `json:"sinks" yaml:"sinks"`
}

// LoadSinks reads and validates the sinks file. ".json" files are decoded as
// JSON, anything else as YAML.
func LoadSinks(path string) ([]SinkConfig, error) {
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("read sinks file: %w", err)
	}

	var file sinksFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(raw, &file)
	} else {
		err = yaml.Unmarshal(raw, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode sinks file %s: %w", filepath.Base(path), err)
	}
	if len(file.Sinks) == 0 {
		return nil, errors.New("sinks file declares no sinks")
	}

	seen := make(map[string]bool, len(file.Sinks))
	for i := range file.Sinks {
		cfg := &file.Sinks[i]
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		if seen[cfg.ID] {
			return nil, fmt.Errorf("sinks[%d]: duplicate id %q", i, cfg.ID)
		}
		seen[cfg.ID] = true
	}
	return file.Sinks, nil
}

// EnabledSinks drops disabled entries.
func EnabledSinks(cfgs []SinkConfig) []SinkConfig {
	out := make([]SinkConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.IsEnabled() {
			out = append(out, cfg)
		}
	}
	return out
}

func (c *SinkConfig) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	c.Match.normalize()

	if c.HTTP != nil {
		c.HTTP.normalize()
	}
	if c.SQS != nil {
		c.SQS.QueueURL = strings.TrimSpace(c.SQS.QueueURL)
		c.SQS.Region = strings.TrimSpace(c.SQS.Region)
		c.SQS.AWSAccess.normalize()
	}
	if c.SNS != nil {
		c.SNS.TopicARN = strings.TrimSpace(c.SNS.TopicARN)
		c.SNS.Region = strings.TrimSpace(c.SNS.Region)
		c.SNS.AWSAccess.normalize()
	}
	if c.PubSub != nil {
		c.PubSub.ProjectID = strings.TrimSpace(c.PubSub.ProjectID)
		c.PubSub.Topic = strings.TrimSpace(c.PubSub.Topic)
		c.PubSub.CredentialsFile = strings.TrimSpace(c.PubSub.CredentialsFile)
	}
}

func (c *HTTPSinkConfig) normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = "POST"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			headers[k] = v
		}
	}
	c.Headers = headers
}

func (a *AWSAccess) normalize() {
	a.Endpoint = strings.TrimSpace(a.Endpoint)
	a.AccessKeyID = strings.TrimSpace(a.AccessKeyID)
	a.SecretAccessKey = strings.TrimSpace(a.SecretAccessKey)
}

// validate checks the block matching Type; other blocks are ignored.
func (c SinkConfig) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if _, err := c.Match.compile(); err != nil {
		return fmt.Errorf("sink %q: %w", c.ID, err)
	}

	var missing []string
	require := func(field, value string) {
		if value == "" {
			missing = append(missing, field)
		}
	}
	switch c.Type {
	case TypeHTTP:
		if c.HTTP == nil {
			return fmt.Errorf("sink %q: http block is required", c.ID)
		}
		require("http.url", c.HTTP.URL)
	case TypeSQS:
		if c.SQS == nil {
			return fmt.Errorf("sink %q: sqs block is required", c.ID)
		}
		require("sqs.uri", c.SQS.QueueURL)
		require("sqs.region", c.SQS.Region)
	case TypeSNS:
		if c.SNS == nil {
			return fmt.Errorf("sink %q: sns block is required", c.ID)
		}
		require("sns.topic_arn", c.SNS.TopicARN)
		require("sns.region", c.SNS.Region)
	case TypePubSub:
		if c.PubSub == nil {
			return fmt.Errorf("sink %q: pubsub block is required", c.ID)
		}
		require("pubsub.project_id", c.PubSub.ProjectID)
		require("pubsub.topic", c.PubSub.Topic)
	case "":
		return fmt.Errorf("sink %q: type is required", c.ID)
	default:
		return fmt.Errorf("sink %q: unsupported type %q", c.ID, c.Type)
	}
	if len(missing) > 0 {
		return fmt.Errorf("sink %q: missing %s", c.ID, strings.Join(missing, ", "))
	}
	return nil
}
