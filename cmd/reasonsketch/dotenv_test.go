// ABOUTME: Tests for .env parsing and loading: quoting, export prefixes, comments, and no-clobber semantics.
// ABOUTME: Each test uses t.Setenv so the process environment is restored afterwards.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDotEnvLine(t *testing.T) {
	tests := []struct {
		line      string
		key, val  string
		wantValid bool
	}{
		{"GEMINI_API_KEY=abc", "GEMINI_API_KEY", "abc", true},
		{"export OPENAI_API_KEY=sk-1", "OPENAI_API_KEY", "sk-1", true},
		{`  MODEL = "gpt-4o mini" `, "MODEL", "gpt-4o mini", true},
		{"URL='http://x/v1?a=b'", "URL", "http://x/v1?a=b", true},
		{`MIXED="abc'`, "MIXED", `"abc'`, true},
		{"EMPTY=", "EMPTY", "", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"no equals sign", "", "", false},
		{"=value", "", "", false},
	}
	for _, tt := range tests {
		key, val, ok := parseDotEnvLine(tt.line)
		if ok != tt.wantValid || key != tt.key || val != tt.val {
			t.Errorf("parseDotEnvLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, key, val, ok, tt.key, tt.val, tt.wantValid)
		}
	}
}

func TestLoadDotEnvDoesNotClobber(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# keys\nRS_TEST_EXISTING=from-file\nRS_TEST_NEW=\"fresh\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RS_TEST_EXISTING", "from-env")
	t.Setenv("RS_TEST_NEW", "")
	os.Unsetenv("RS_TEST_NEW")

	if n := loadDotEnv(path); n != 1 {
		t.Errorf("loadDotEnv set %d variables, want 1", n)
	}
	if got := os.Getenv("RS_TEST_EXISTING"); got != "from-env" {
		t.Errorf("RS_TEST_EXISTING = %q, want from-env", got)
	}
	if got := os.Getenv("RS_TEST_NEW"); got != "fresh" {
		t.Errorf("RS_TEST_NEW = %q, want fresh", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if n := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); n != 0 {
		t.Errorf("loadDotEnv on a missing file set %d variables", n)
	}
}
