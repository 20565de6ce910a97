package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/wikiexport/internal/config"
	"github.com/nao1215/wikiexport/internal/crawler"
	"github.com/nao1215/wikiexport/internal/model"
	"github.com/nao1215/wikiexport/internal/politeness"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".wikiexport")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}
	return path
}

func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"out", "o", config.DefaultOutDir},
		{"max-pages", "n", "1500"},
		{"timeout", "t", "25s"},
		{"wiki-prefix", "", "/wiki/"},
		{"user-agent", "", config.DefaultUserAgent},
		{"no-robots", "", "false"},
		{"retry-failed", "", "false"},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"log-json", "", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}

	t.Run("requires exactly one start url", func(t *testing.T) {
		t.Parallel()
		if err := cmd.Args(cmd, nil); err == nil {
			t.Error("expected error without start url")
		}
		if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
			t.Error("expected error with two start urls")
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	const startURL = "https://wiki.example.org/wiki/Main_Page"

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", writeConfigFile(t, "sites: {}\n"))
		cfg, err := buildConfig(cmd, []string{startURL})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.StartURL != startURL {
			t.Errorf("StartURL = %q", cfg.StartURL)
		}
		if cfg.Delay != nil {
			t.Errorf("expected no delay override, got %v", *cfg.Delay)
		}
		if !cfg.HonorRobots || !cfg.HistoryDB {
			t.Error("expected robots and history to be enabled by default")
		}
		if cfg.PathPrefix != config.DefaultPathPrefix || cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("unexpected defaults: prefix=%q max=%d", cfg.PathPrefix, cfg.MaxPages)
		}
	})

	t.Run("flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		flags := map[string]string{
			"config":       writeConfigFile(t, "sites: {}\n"),
			"out":          "brodgar",
			"max-pages":    "10",
			"delay":        "2.5",
			"no-robots":    "true",
			"no-history":   "true",
			"retry-failed": "true",
			"workers":      "3",
			"wiki-prefix":  "/w/",
		}
		for name, value := range flags {
			if err := cmd.Flags().Set(name, value); err != nil {
				t.Fatalf("set %s: %v", name, err)
			}
		}

		cfg, err := buildConfig(cmd, []string{"https://wiki.example.org/w/Start"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.OutDir != "brodgar" || cfg.MaxPages != 10 || cfg.Workers != 3 || cfg.PathPrefix != "/w/" {
			t.Errorf("flags not applied: %+v", cfg)
		}
		if cfg.Delay == nil || *cfg.Delay != 2500*time.Millisecond {
			t.Errorf("expected delay 2.5s, got %v", cfg.Delay)
		}
		if cfg.HonorRobots || cfg.HistoryDB || !cfg.RetryFailed {
			t.Errorf("boolean flags not applied: robots=%v history=%v retry=%v", cfg.HonorRobots, cfg.HistoryDB, cfg.RetryFailed)
		}
	})

	t.Run("config file applies unless a flag was set", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, `defaults:
  userAgent: "Archiver/2.0"
sites:
  wiki.example.org:
    pathPrefix: "/w/"
    cookie: "session=abc"
    delay: 3
`)
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", path)
		_ = cmd.Flags().Set("delay", "1")

		cfg, err := buildConfig(cmd, []string{"https://wiki.example.org/w/Start"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.UserAgent != "Archiver/2.0" {
			t.Errorf("UserAgent = %q, want value from defaults", cfg.UserAgent)
		}
		if cfg.PathPrefix != "/w/" || cfg.Cookie != "session=abc" {
			t.Errorf("site settings not applied: prefix=%q cookie=%q", cfg.PathPrefix, cfg.Cookie)
		}
		if cfg.Delay == nil || *cfg.Delay != time.Second {
			t.Errorf("expected --delay to win over the config file, got %v", cfg.Delay)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := buildConfig(cmd, []string{startURL}); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("invalid config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", writeConfigFile(t, "invalid: yaml: content: ["))
		if _, err := buildConfig(cmd, []string{startURL}); err == nil {
			t.Error("expected error for invalid config file")
		}
	})
}

func TestRunCrawlCmdConflictingFormats(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{
		"--config", writeConfigFile(t, "sites: {}\n"),
		"-j", "-m",
		"https://wiki.example.org/wiki/Main_Page",
	})

	err := cmd.Execute()
	if !errors.Is(err, config.ErrConflictingReportFormats) {
		t.Errorf("expected ErrConflictingReportFormats, got %v", err)
	}
}

func newTestWiki(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/wiki/Start": `<html><body><h1 id="firstHeading">Start</h1>
<div id="mw-content-text"><p>First page.</p><a href="/wiki/Next">next</a></div></body></html>`,
		"/wiki/Next": `<html><body><h1 id="firstHeading">Next</h1>
<div id="mw-content-text"><p>Second page.</p><a href="/wiki/Start">back</a></div></body></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testCrawlConfig(t *testing.T, startURL string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.StartURL = startURL
	cfg.OutDir = t.TempDir()
	cfg.Timeout = 5 * time.Second
	return cfg
}

// fakeClock lets crawls skip the real politeness delay.
func fakeClock() crawler.Option {
	return crawler.WithClock(politeness.NewFakeClock(time.Now()))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("exports and records history", func(t *testing.T) {
		t.Parallel()

		srv := newTestWiki(t)
		cfg := testCrawlConfig(t, srv.URL+"/wiki/Start")
		cfg.MetricsAddr = "127.0.0.1:0"

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, discardLogger(), &out, fakeClock()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		for _, want := range []string{"Exported 2 pages to:", "Manifest:", "Used default delay: 1 seconds"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("summary missing %q:\n%s", want, out.String())
			}
		}

		var history bytes.Buffer
		if err := runHistory(context.Background(), historyOptions{outDir: cfg.OutDir, limit: 10}, &history); err != nil {
			t.Fatalf("runHistory() error = %v", err)
		}
		if !strings.Contains(history.String(), "completed") || !strings.Contains(history.String(), srv.URL+"/wiki/Start") {
			t.Errorf("unexpected history:\n%s", history.String())
		}

		var run bytes.Buffer
		if err := runHistory(context.Background(), historyOptions{outDir: cfg.OutDir, runID: 1}, &run); err != nil {
			t.Fatalf("runHistory(run) error = %v", err)
		}
		if !strings.Contains(run.String(), srv.URL+"/wiki/Next") {
			t.Errorf("run detail missing exported url:\n%s", run.String())
		}
	})

	t.Run("json summary", func(t *testing.T) {
		t.Parallel()

		srv := newTestWiki(t)
		cfg := testCrawlConfig(t, srv.URL+"/wiki/Start")
		cfg.JSONReport = true
		cfg.HistoryDB = false

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, discardLogger(), &out, fakeClock()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		if !strings.Contains(out.String(), `"exported": 2`) {
			t.Errorf("unexpected JSON summary:\n%s", out.String())
		}
		if _, err := os.Stat(cfg.HistoryDBPath()); !os.IsNotExist(err) {
			t.Error("expected no history database with history disabled")
		}
	})

	t.Run("unwritable output aborts", func(t *testing.T) {
		t.Parallel()

		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		cfg := testCrawlConfig(t, "https://wiki.example.org/wiki/Start")
		cfg.OutDir = blocker
		cfg.HonorRobots = false

		var out bytes.Buffer
		err := runCrawl(context.Background(), cfg, discardLogger(), &out, fakeClock())
		if err == nil || !strings.Contains(err.Error(), "crawl aborted") {
			t.Fatalf("expected aborted error, got %v", err)
		}
		if !strings.Contains(out.String(), "Crawl aborted:") {
			t.Errorf("summary should report the abort:\n%s", out.String())
		}
	})

	t.Run("cancelled run can be resumed", func(t *testing.T) {
		t.Parallel()

		cfg := testCrawlConfig(t, "https://wiki.example.org/wiki/Start")
		cfg.HonorRobots = false
		cfg.HistoryDB = false

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runCrawl(ctx, cfg, discardLogger(), io.Discard, fakeClock())
		if err == nil || !strings.Contains(err.Error(), "resume") {
			t.Errorf("expected interrupted error, got %v", err)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json lines with redaction", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		newLogger(&buf, false, true).Warn("fetch failed", "cookie", "session=SECRET", "url", "https://wiki.example.org/wiki/A")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
		}
		if entry["msg"] != "fetch failed" || entry["url"] != "https://wiki.example.org/wiki/A" {
			t.Errorf("entry = %v", entry)
		}
		if strings.Contains(buf.String(), "SECRET") {
			t.Errorf("cookie leaked: %s", buf.String())
		}
	})

	t.Run("text by default", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		newLogger(&buf, false, false).Warn("fetch failed")
		if !strings.Contains(buf.String(), "msg=\"fetch failed\"") {
			t.Errorf("expected text output, got %q", buf.String())
		}
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		newLogger(&buf, true, true).Debug("links")
		if !strings.Contains(buf.String(), `"level":"DEBUG"`) {
			t.Errorf("expected debug entry, got %q", buf.String())
		}
	})
}

func TestOutputSummary(t *testing.T) {
	t.Parallel()

	summary := model.NewRunSummary("https://wiki.example.org/wiki/Main_Page")
	summary.State = model.RunStateCompleted
	summary.Exported = 3
	summary.Delay = 2 * time.Second
	summary.DelaySource = model.DelaySourceRobots

	t.Run("markdown to report file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.MarkdownReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "summary.md")

		var out bytes.Buffer
		if err := outputSummary(cfg, &out, summary); err != nil {
			t.Fatalf("outputSummary() error = %v", err)
		}
		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("report file not written: %v", err)
		}
		if !strings.Contains(string(data), "# Wiki Export Summary") {
			t.Errorf("unexpected markdown:\n%s", data)
		}
		if !strings.Contains(out.String(), "Used robots.txt Crawl-delay: 2 seconds") || strings.Contains(out.String(), "# Wiki Export Summary") {
			t.Errorf("stdout should get the text summary:\n%s", out.String())
		}
	})

	t.Run("text to writer", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := outputSummary(config.NewConfig(), &out, summary); err != nil {
			t.Fatalf("outputSummary() error = %v", err)
		}
		if !strings.Contains(out.String(), "Used robots.txt Crawl-delay: 2 seconds") {
			t.Errorf("unexpected text summary:\n%s", out.String())
		}
	})
}
