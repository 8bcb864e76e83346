package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/typegate/internal/config"
	"github.com/verte-zerg/typegate/internal/model"
)

func validConfig() model.Config {
	return model.Config{
		LookupTimeout: time.Second,
		DurationSec:   600,
		ContentLength: 5000,
		DBPath:        "/tmp/typegate.db",
		LogLevel:      "info",
	}
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]func(*model.Config){
		"duration":  func(c *model.Config) { c.DurationSec = 0 },
		"length":    func(c *model.Config) { c.ContentLength = -1 },
		"timeout":   func(c *model.Config) { c.LookupTimeout = 0 },
		"topic":     func(c *model.Config) { c.Topic = "cooking" },
		"db":        func(c *model.Config) { c.DBPath = " " },
		"log level": func(c *model.Config) { c.LogLevel = "loud" },
	}
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var cfg config.FileConfig
	if _, err := toml.Decode(defaultConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template must be valid TOML: %v", err)
	}
	if cfg.Assessment.Duration != nil || cfg.Lookup.URL != nil {
		t.Fatalf("template values must be commented out")
	}
}

func TestParsePosition(t *testing.T) {
	if idx, err := parsePosition("3"); err != nil || idx != 2 {
		t.Fatalf("expected index 2, got %d %v", idx, err)
	}
	for _, bad := range []string{"0", "-1", "x"} {
		if _, err := parsePosition(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestCodesAndClientsCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"192.0.2.10"}`))
	}))
	defer srv.Close()

	common := []string{
		"--db", filepath.Join(dir, "typegate.db"),
		"--log-file", filepath.Join(dir, "typegate.log"),
		"--lookup-url", srv.URL,
	}
	with := func(args ...string) []string {
		return append(args, common...)
	}

	out := runCLI(t, with("codes", "generate")...)
	if !strings.HasPrefix(out, "Generated license code: ") {
		t.Fatalf("unexpected output %q", out)
	}
	code := strings.TrimSpace(strings.TrimPrefix(out, "Generated license code: "))

	out = runCLI(t, with("codes", "list")...)
	if !strings.Contains(out, code) || !strings.Contains(out, "unused") || !strings.Contains(out, "192.0.2.10") {
		t.Fatalf("unexpected code listing %q", out)
	}

	out = runCLI(t, with("clients", "list")...)
	if !strings.Contains(out, "No authorized clients found.") {
		t.Fatalf("unexpected client listing %q", out)
	}

	out = runCLI(t, with("topics")...)
	if !strings.Contains(out, "technology") {
		t.Fatalf("unexpected topics %q", out)
	}
}
