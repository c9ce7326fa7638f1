package targets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/reqwatch/pkg/payload"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write targets file: %v", err)
	}
	return path
}

func TestLoadRegistryYAML(t *testing.T) {
	path := writeFile(t, "targets.yaml", `
targets:
  - id: users
    url: https://api.example.com/users
    method: post
    headers:
      Accept: application/json
      X-Empty: " "
    body:
      name: x
    debounce_ms: 250
    timeout_seconds: 3
    response_type: JSON
  - id: status
    url: https://status.example.com
    enabled: false
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(reg.All()))
	}

	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "users" {
		t.Fatalf("expected only users enabled, got %#v", enabled)
	}

	users, ok := reg.ByID("users")
	if !ok {
		t.Fatalf("expected target users to be loaded")
	}
	if users.Method != "POST" {
		t.Fatalf("method = %s", users.Method)
	}
	if _, ok := users.Headers["X-Empty"]; ok {
		t.Fatalf("empty header was not dropped: %#v", users.Headers)
	}
	if users.PayloadType() != payload.TypeJSON {
		t.Fatalf("payload type = %s", users.PayloadType())
	}

	cfg := users.RequestConfig(Defaults{Timeout: 10 * time.Second})
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("timeout = %s", cfg.Timeout)
	}
	if cfg.Body == nil {
		t.Fatalf("body not passed through")
	}

	debounce, throttle := users.RateLimits(Defaults{Throttle: time.Second})
	if debounce != 250*time.Millisecond || throttle != 0 {
		t.Fatalf("rate limits = %s/%s", debounce, throttle)
	}
}

func TestTargetDefaults(t *testing.T) {
	reg, err := ParseRegistry([]byte(`{"targets":[{"id":"a","url":"https://a.example.com"}]}`), ".json")
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}
	a, _ := reg.ByID("a")
	if a.Method != "GET" || !a.EnabledValue() {
		t.Fatalf("unexpected defaults %#v", a)
	}

	defaults := Defaults{Debounce: 100 * time.Millisecond, Timeout: 5 * time.Second}
	debounce, throttle := a.RateLimits(defaults)
	if debounce != 100*time.Millisecond || throttle != 0 {
		t.Fatalf("rate limits = %s/%s", debounce, throttle)
	}
	if a.RequestConfig(defaults).Timeout != 5*time.Second {
		t.Fatalf("default timeout not applied")
	}
}

func TestLoadRegistryRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
targets:
  - id: a
    url: https://a.example.com
  - id: a
    url: https://b.example.com
`,
		"relative url": `
targets:
  - id: a
    url: /users
`,
		"negative throttle": `
targets:
  - id: a
    url: https://a.example.com
    throttle_ms: -1
`,
		"bad response type": `
targets:
  - id: a
    url: https://a.example.com
    response_type: protobuf
`,
		"empty": `targets: []`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "targets.yaml", content)
			if _, err := LoadRegistry(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRegistryMissingPath(t *testing.T) {
	if _, err := LoadRegistry(" "); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty path error, got %v", err)
	}
}
