// ABOUTME: Loads provider keys and settings from .env files at startup.
// ABOUTME: Existing environment variables always win; files only fill gaps.
package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// parseDotEnvLine splits one .env line into a key and value. Comments, blank
// lines, and lines without '=' report ok=false. An "export " prefix and
// matching surrounding quotes are stripped.
func parseDotEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
		value = value[1 : n-1]
	}
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// loadDotEnv sets variables from path that are not already in the
// environment and returns how many it set. A missing file sets nothing.
func loadDotEnv(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	set := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := parseDotEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if os.Setenv(key, value) == nil {
			set++
		}
	}
	return set
}

// loadDotEnvAuto loads .env from the working directory and each parent, then
// from next to the executable. Nearer files win because they load first.
func loadDotEnvAuto() {
	seen := map[string]bool{}
	load := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		loadDotEnv(p)
	}

	if wd, err := os.Getwd(); err == nil {
		for dir := wd; ; dir = filepath.Dir(dir) {
			load(filepath.Join(dir, ".env"))
			if filepath.Dir(dir) == dir {
				break
			}
		}
	}
	if exe, err := os.Executable(); err == nil {
		load(filepath.Join(filepath.Dir(exe), ".env"))
	}
}
