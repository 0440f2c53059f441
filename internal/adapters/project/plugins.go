package project

import (
	"regexp"
	"strings"
)

// PluginSet records the compiler plugins applied by a Gradle build script.
type PluginSet struct {
	Java          bool
	KotlinJVM     bool
	KotlinAndroid bool
	Android       bool
}

var pluginPatterns = []struct {
	re  *regexp.Regexp
	set func(*PluginSet)
}{
	{regexp.MustCompile(`\bkotlin\(\s*"jvm"\s*\)|org\.jetbrains\.kotlin\.jvm|plugins\.kotlin\.jvm|['"]kotlin['"]`), func(p *PluginSet) { p.KotlinJVM = true }},
	{regexp.MustCompile(`\bkotlin\(\s*"android"\s*\)|org\.jetbrains\.kotlin\.android|plugins\.kotlin\.android|['"]kotlin-android['"]`), func(p *PluginSet) { p.KotlinAndroid = true }},
	{regexp.MustCompile(`com\.android\.(application|library|dynamic-feature|test)|plugins\.android\.(application|library)`), func(p *PluginSet) { p.Android = true }},
	{regexp.MustCompile("`java`|`java-library`|\\bapplication\\b\\s*$|['\"](java|java-library|application|groovy|scala)['\"]"), func(p *PluginSet) { p.Java = true }},
}

// ParsePlugins detects the compiler plugins a build script applies.
func ParsePlugins(script string) PluginSet {
	script = blockComment.ReplaceAllString(script, "")
	script = lineComment.ReplaceAllString(script, "")

	var p PluginSet
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		for _, pat := range pluginPatterns {
			if pat.re.MatchString(line) {
				pat.set(&p)
			}
		}
	}
	return p
}

// Producers returns the compile tasks the plugins register, for the given variants.
func (p PluginSet) Producers(variants []string) []string {
	var out []string
	if p.KotlinJVM {
		out = append(out, "compileKotlin")
	}
	if p.Java || (p.KotlinJVM && !p.Android) {
		out = append(out, "compileJava")
	}
	if p.Android {
		for _, v := range variants {
			c := strings.ToUpper(v[:1]) + v[1:]
			if p.KotlinAndroid || p.KotlinJVM {
				out = append(out, "compile"+c+"Kotlin")
			}
			out = append(out, "compile"+c+"JavaWithJavac")
		}
	}
	if len(out) > 0 && !p.Android {
		out = append(out, "classes")
	}
	return out
}
