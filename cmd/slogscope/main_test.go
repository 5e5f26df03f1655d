// Copyright 2026 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pjscruggs/slogscope"
	"github.com/pjscruggs/slogscope/tree"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile(%s) returned %v", path, err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestMergeCommand(t *testing.T) {
	t.Parallel()

	base := writeConfig(t, "base.yml", "loggers: {x: {level: INFO, handlers: [h1]}}\n")
	override := writeConfig(t, "override.yml", "loggers: {x: {level: ERROR}}\n")
	// h1 comes first, on stdin, so every intermediate document is accepted.
	stdout, _, err := run(t, "handlers: {h1: {class: logging.NullHandler}}\n", "merge", "-", base, override)
	if err != nil {
		t.Fatalf("merge returned %v", err)
	}

	doc, err := tree.Parse([]byte(stdout))
	if err != nil {
		t.Fatalf("tree.Parse(%q) returned %v", stdout, err)
	}
	want, _ := tree.Parse([]byte(`
loggers: {x: {level: ERROR, handlers: [h1]}}
handlers: {h1: {class: logging.NullHandler}}
disable_existing_loggers: false
`))
	if !doc.Equal(want) {
		t.Fatalf("merged document = %v, want %v", doc, want)
	}
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()

	good := writeConfig(t, "good.yml", "root: {level: WARN}\n")
	if stdout, _, err := run(t, "", "check", good); err != nil || !strings.HasPrefix(stdout, "ok") {
		t.Fatalf("check(good) = %q, %v, want ok", stdout, err)
	}

	bad := writeConfig(t, "bad.yml", "root: {handlers: [missing]}\n")
	if _, _, err := run(t, "", "check", bad); err == nil {
		t.Fatalf("check(bad) returned nil error")
	}
	if _, _, err := run(t, "", "check", "no/such/file.yml"); err == nil {
		t.Fatalf("check(missing) returned nil error")
	}
}

// TestCheckDoesNotOpenFiles validates file handlers without creating logs.
func TestCheckDoesNotOpenFiles(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "app.log")
	cfg := writeConfig(t, "file.yml", "handlers: {f: {class: file, filename: "+logPath+"}}\nroot: {handlers: [f]}\n")
	if _, _, err := run(t, "", "check", cfg); err != nil {
		t.Fatalf("check returned %v", err)
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Fatalf("os.Stat(%s) = %v, want not exist", logPath, err)
	}
}

func TestEmitCommand(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "emit.yml", `
formatters: {plain: {format: json, time: false}}
handlers: {out: {class: stream, stream: ext://sys.stdout, formatter: plain}}
loggers: {app.db: {level: DEBUG}}
root: {level: WARN, handlers: [out]}
`)
	stdout, _, err := run(t, "", "emit", "-c", cfg, "-s", "app.db", "-l", "debug", "connected", "host=db1")
	if err != nil {
		t.Fatalf("emit returned %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &entry); err != nil {
		t.Fatalf("json.Unmarshal(%q) returned %v", stdout, err)
	}
	if entry["msg"] != "connected" || entry["level"] != "DEBUG" || entry["host"] != "db1" {
		t.Fatalf("emitted record = %v", entry)
	}

	stdout, _, err = run(t, "", "emit", "-c", cfg, "-s", "other", "-l", "INFO", "dropped")
	if err != nil {
		t.Fatalf("emit returned %v", err)
	}
	if stdout != "" {
		t.Fatalf("record below the root level was written: %q", stdout)
	}
}

func TestEmitCommandErrors(t *testing.T) {
	t.Parallel()

	if _, _, err := run(t, "", "emit", "-l", "LOUD", "msg"); err == nil {
		t.Fatalf("emit with invalid level returned nil error")
	}
	if _, _, err := run(t, "", "emit", "msg", "novalue"); err == nil {
		t.Fatalf("emit with malformed field returned nil error")
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version returned %v", err)
	}
	if got := strings.TrimSpace(stdout); got != slogscope.GetVersion() {
		t.Fatalf("version output = %q, want %q", got, slogscope.GetVersion())
	}
}
