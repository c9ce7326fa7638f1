package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
)

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// PublisherConfig is one sink entry of the publishers file. Exactly the block
// matching Type is read.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id"`
	Type    string                 `json:"type" yaml:"type"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
}

// HTTPPublisherConfig posts events to a webhook.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// SQSPublisherConfig sends events to an AWS SQS queue.
type SQSPublisherConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
}

// SNSPublisherConfig publishes events to an AWS SNS topic.
type SNSPublisherConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
}

// PubSubPublisherConfig publishes events to a GCP Pub/Sub topic.
type PubSubPublisherConfig struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Topic     string `json:"topic" yaml:"topic"`
}

// ConfigRegistry is the validated content of a publishers file.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]int
}

// LoadRegistry reads a YAML or JSON publishers file. The extension selects
// the decoder.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}
	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry decodes and validates publishers file content. ext may be
// empty, in which case YAML is tried before JSON.
func ParseRegistry(data []byte, ext string) (*ConfigRegistry, error) {
	var file struct {
		Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
	}
	if err := decodeFile(data, ext, &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{idx: make(map[string]int, len(file.Publishers))}
	for i, cfg := range file.Publishers {
		cfg.sanitize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.idx[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

func decodeFile(data []byte, ext string, out any) error {
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode yaml publishers: %w", err)
		}
		return nil
	case ".json":
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode json publishers: %w", err)
		}
		return nil
	case "":
		if yaml.Unmarshal(data, out) == nil || json.Unmarshal(data, out) == nil {
			return nil
		}
	}
	return errors.New("publishers file format not recognized (expected YAML or JSON)")
}

func (cfg *PublisherConfig) sanitize() {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}

	if h := cfg.HTTP; h != nil {
		h.URL = strings.TrimSpace(h.URL)
		if h.Method = strings.ToUpper(strings.TrimSpace(h.Method)); h.Method == "" {
			h.Method = httpDefaultMethod
		}
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		h.Headers = trimHeaders(h.Headers)
	}
	if q := cfg.SQS; q != nil {
		q.QueueURL = strings.TrimSpace(q.QueueURL)
		q.Region = strings.TrimSpace(q.Region)
	}
	if t := cfg.SNS; t != nil {
		t.TopicARN = strings.TrimSpace(t.TopicARN)
		t.Region = strings.TrimSpace(t.Region)
	}
	if p := cfg.PubSub; p != nil {
		p.ProjectID = strings.TrimSpace(p.ProjectID)
		p.Topic = strings.TrimSpace(p.Topic)
	}
}

// trimHeaders drops headers whose key or value is blank.
func trimHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	var missing []string
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", cfg.ID)
		}
		missing = blank(map[string]string{"http.url": cfg.HTTP.URL})
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for publisher %q", cfg.ID)
		}
		missing = blank(map[string]string{"sqs.uri": cfg.SQS.QueueURL, "sqs.region": cfg.SQS.Region})
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", cfg.ID)
		}
		missing = blank(map[string]string{"sns.topic_arn": cfg.SNS.TopicARN, "sns.region": cfg.SNS.Region})
	case TypePubSub:
		if cfg.PubSub == nil {
			return fmt.Errorf("pubsub config required for publisher %q", cfg.ID)
		}
		missing = blank(map[string]string{"pubsub.project_id": cfg.PubSub.ProjectID, "pubsub.topic": cfg.PubSub.Topic})
	default:
		return fmt.Errorf("unsupported type %q for publisher %q", cfg.Type, cfg.ID)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s required for publisher %q", strings.Join(missing, ", "), cfg.ID)
	}
	return nil
}

// blank returns the sorted names of empty fields.
func blank(fields map[string]string) []string {
	var out []string
	for name, v := range fields {
		if v == "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ByID returns the publisher config with the given id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns every configured publisher in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.publishers...)
}

// Enabled returns the publishers that are switched on.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue reports the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}
