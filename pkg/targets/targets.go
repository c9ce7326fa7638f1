// Package targets loads the named request targets watched by the daemon.
package targets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/reqwatch/pkg/httpclient"
	"github.com/samvad-hq/reqwatch/pkg/payload"
	"gopkg.in/yaml.v3"
)

// Target is a single request definition declared in the targets file.
type Target struct {
	ID             string            `json:"id" yaml:"id"`
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Query          map[string]string `json:"query" yaml:"query"`
	Body           any               `json:"body" yaml:"body"`
	DebounceMs     int               `json:"debounce_ms" yaml:"debounce_ms"`
	ThrottleMs     int               `json:"throttle_ms" yaml:"throttle_ms"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	ResponseType   string            `json:"response_type" yaml:"response_type"`
	Enabled        *bool             `json:"enabled" yaml:"enabled"`
}

// Defaults fill in rate limiting and timeouts a target leaves unset.
type Defaults struct {
	Debounce time.Duration
	Throttle time.Duration
	Timeout  time.Duration
}

type fileRegistry struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Registry holds targets loaded from a file, indexed by id.
type Registry struct {
	mu      sync.RWMutex
	targets []Target
	idx     map[string]Target
}

// LoadRegistry loads the targets registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("targets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry decodes, sanitizes and validates targets from raw file content.
func ParseRegistry(data []byte, ext string) (*Registry, error) {
	parsed, err := parseFile(data, ext)
	if err != nil {
		return nil, err
	}
	if len(parsed.Targets) == 0 {
		return nil, errors.New("targets file contains no targets entries")
	}

	reg := &Registry{
		targets: make([]Target, len(parsed.Targets)),
		idx:     make(map[string]Target, len(parsed.Targets)),
	}
	for i := range parsed.Targets {
		t := sanitizeTarget(parsed.Targets[i])
		if err := validateTarget(t); err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		if _, exists := reg.idx[t.ID]; exists {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		reg.targets[i] = t
		reg.idx[t.ID] = t
	}
	return reg, nil
}

type unmarshalFn func([]byte, any) error

func parseFile(data []byte, ext string) (fileRegistry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg fileRegistry
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return fileRegistry{}, errors.New("targets file format not recognized (expected YAML or JSON)")
}

func sanitizeTarget(t Target) Target {
	t.ID = strings.TrimSpace(t.ID)
	t.URL = strings.TrimSpace(t.URL)
	t.Method = strings.ToUpper(strings.TrimSpace(t.Method))
	if t.Method == "" {
		t.Method = http.MethodGet
	}
	t.Headers = sanitizeMap(t.Headers)
	t.Query = sanitizeMap(t.Query)
	t.ResponseType = strings.ToLower(strings.TrimSpace(t.ResponseType))

	if t.Enabled == nil {
		def := true
		t.Enabled = &def
	}
	return t
}

// sanitizeMap trims keys and values and drops empty entries.
func sanitizeMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validateTarget(t Target) error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.URL == "" {
		return fmt.Errorf("url is required for target %q", t.ID)
	}
	u, err := url.Parse(t.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q is not absolute for target %q", t.URL, t.ID)
	}
	if t.DebounceMs < 0 || t.ThrottleMs < 0 {
		return fmt.Errorf("debounce_ms/throttle_ms must not be negative for target %q", t.ID)
	}
	if t.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative for target %q", t.ID)
	}
	if _, err := payload.ParseType(t.ResponseType); err != nil {
		return fmt.Errorf("target %q: %w", t.ID, err)
	}
	return nil
}

// ByID returns the target by id.
func (r *Registry) ByID(id string) (Target, bool) {
	if r == nil {
		return Target{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Target{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.idx[id]
	return t, ok
}

// All returns all configured targets.
func (r *Registry) All() []Target {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// Enabled returns targets that are enabled.
func (r *Registry) Enabled() []Target {
	all := r.All()
	out := make([]Target, 0, len(all))
	for _, t := range all {
		if t.EnabledValue() {
			out = append(out, t)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (t Target) EnabledValue() bool {
	if t.Enabled == nil {
		return true
	}
	return *t.Enabled
}

// RequestConfig converts the target into transport options.
func (t Target) RequestConfig(defaults Defaults) httpclient.RequestConfig {
	timeout := defaults.Timeout
	if t.TimeoutSeconds > 0 {
		timeout = time.Duration(t.TimeoutSeconds) * time.Second
	}
	return httpclient.RequestConfig{
		Method:  t.Method,
		Headers: t.Headers,
		Query:   t.Query,
		Body:    t.Body,
		Timeout: timeout,
	}
}

// RateLimits returns the debounce and throttle windows for the target. A
// target that sets either value opts out of both defaults.
func (t Target) RateLimits(defaults Defaults) (debounce, throttle time.Duration) {
	if t.DebounceMs > 0 || t.ThrottleMs > 0 {
		return time.Duration(t.DebounceMs) * time.Millisecond, time.Duration(t.ThrottleMs) * time.Millisecond
	}
	return defaults.Debounce, defaults.Throttle
}

// PayloadType returns the configured response decoding mode.
func (t Target) PayloadType() payload.Type {
	typ, err := payload.ParseType(t.ResponseType)
	if err != nil {
		return payload.TypeAuto
	}
	return typ
}
