package domain

import (
	"path"
	"slices"
	"strings"
)

// Toolchain identifies the compiler that produces a class output directory.
type Toolchain string

const (
	// ToolchainKotlin is the Kotlin compiler.
	ToolchainKotlin Toolchain = "kotlin"
	// ToolchainJava is the Java compiler.
	ToolchainJava Toolchain = "java"
)

// ClassesLifecycleTask is the aggregate task that depends on every compiler of a module.
const ClassesLifecycleTask = "classes"

// Convention maps a producer task to the directory it writes class files into.
type Convention struct {
	Toolchain Toolchain
	// Producer is the task name, e.g. "compileKotlin".
	Producer string
	// OutputDir is slash-separated and relative to the module directory.
	OutputDir string
}

// Conventions returns the ordered convention table for the given variants.
// Kotlin main output comes first, then Java main output, then each variant in declared order.
func Conventions(variants []string) []Convention {
	table := []Convention{
		{Toolchain: ToolchainKotlin, Producer: "compileKotlin", OutputDir: "build/classes/kotlin/main"},
		{Toolchain: ToolchainJava, Producer: "compileJava", OutputDir: "build/classes/java/main"},
	}
	for _, v := range variants {
		c := capitalize(v)
		table = append(table,
			Convention{
				Toolchain: ToolchainKotlin,
				Producer:  "compile" + c + "Kotlin",
				OutputDir: path.Join("build/tmp/kotlin-classes", v),
			},
			Convention{
				Toolchain: ToolchainJava,
				Producer:  "compile" + c + "JavaWithJavac",
				OutputDir: path.Join("build/intermediates/javac", v, "classes"),
			},
		)
	}
	return table
}

// Module is one unit of the project topology.
type Module struct {
	// Name is the module path without leading colon, empty for the root module.
	Name string
	// Dir is the absolute module directory.
	Dir string
	// Producers lists the producer tasks configured for the module.
	Producers []string
}

// IsRoot reports whether m is the root module.
func (m Module) IsRoot() bool {
	return m.Name == ""
}

// HasProducer reports whether the producer task is configured for the module.
func (m Module) HasProducer(producer string) bool {
	return slices.Contains(m.Producers, producer)
}

// Project is the module topology: the root module followed by sub-modules in declared order.
type Project struct {
	Modules []Module
}

// Root returns the root module.
func (p Project) Root() Module {
	if len(p.Modules) == 0 {
		return Module{}
	}
	return p.Modules[0]
}

// SubModules returns the sub-modules in declared order.
func (p Project) SubModules() []Module {
	if len(p.Modules) < 2 {
		return nil
	}
	return p.Modules[1:]
}

// ProducerRef names one upstream task of a module.
type ProducerRef struct {
	Module string
	Task   string
}

// Path returns the fully qualified task path, e.g. ":lib:compileJava".
func (r ProducerRef) Path() string {
	if r.Module == "" {
		return ":" + r.Task
	}
	return ":" + r.Module + ":" + r.Task
}

func (r ProducerRef) String() string {
	return r.Path()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
