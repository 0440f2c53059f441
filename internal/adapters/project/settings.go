package project

import (
	"regexp"
	"sort"
	"strings"
)

var (
	blockComment   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment    = regexp.MustCompile(`(?m)//.*$`)
	includeCall    = regexp.MustCompile(`\binclude\b\s*\(([^)]*)\)`)
	includeCommand = regexp.MustCompile(`(?m)\binclude\b[ \t]+([^(\n][^\n]*)$`)
	quoted         = regexp.MustCompile(`["']([^"']+)["']`)
	projectDirSet  = regexp.MustCompile(
		`project\(\s*["']([^"']+)["']\s*\)\.projectDir\s*=\s*(?:file\(\s*|new\s+File\(\s*settingsDir\s*,\s*)["']([^"']+)["']`,
	)
)

// SettingsModule is a sub-module declared in a Gradle settings script.
type SettingsModule struct {
	// Name is the project path without leading colon, e.g. "feature:login".
	Name string
	// Dir is the slash-separated module directory relative to the root project.
	Dir string
}

// ParseSettings extracts the included projects of a settings.gradle or settings.gradle.kts
// script in declaration order. Duplicates keep their first position.
func ParseSettings(script string) []SettingsModule {
	script = blockComment.ReplaceAllString(script, "")
	script = lineComment.ReplaceAllString(script, "")

	type match struct {
		pos  int
		args string
	}
	var matches []match
	for _, m := range includeCall.FindAllStringSubmatchIndex(script, -1) {
		matches = append(matches, match{pos: m[0], args: script[m[2]:m[3]]})
	}
	for _, m := range includeCommand.FindAllStringSubmatchIndex(script, -1) {
		matches = append(matches, match{pos: m[0], args: script[m[2]:m[3]]})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	dirs := make(map[string]string)
	for _, m := range projectDirSet.FindAllStringSubmatch(script, -1) {
		dirs[normalizeName(m[1])] = m[2]
	}

	seen := make(map[string]bool)
	var modules []SettingsModule
	for _, m := range matches {
		for _, q := range quoted.FindAllStringSubmatch(m.args, -1) {
			name := normalizeName(q[1])
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			dir, ok := dirs[name]
			if !ok {
				dir = strings.ReplaceAll(name, ":", "/")
			}
			modules = append(modules, SettingsModule{Name: name, Dir: dir})
		}
	}
	return modules
}

func normalizeName(name string) string {
	return strings.Trim(strings.TrimSpace(name), ":")
}
