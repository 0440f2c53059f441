// Package desugar rewrites language constructs and library calls that older Android
// platform versions cannot execute into plain DEX code.
//
// Each rewrite kind is gated by the first platform version that supports the construct
// natively. A kind applies iff the minimum platform version is below its threshold, so
// lowering the minimum never removes a rewrite.
package desugar

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/dexer/internal/adapters/classfile"
	"go.trai.ch/dexer/internal/adapters/dalvik"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/zerr"
)

// Kind names a family of rewrites.
type Kind string

const (
	// KindLambda turns LambdaMetafactory call sites into synthetic classes.
	KindLambda Kind = "lambda"
	// KindStringConcat turns StringConcatFactory call sites into StringBuilder chains.
	KindStringConcat Kind = "string-concat"
	// KindInterfaceStatic moves static interface methods into companion classes.
	KindInterfaceStatic Kind = "interface-static"
	// KindInterfaceDefault moves default method bodies into companion classes and adds forwarders.
	KindInterfaceDefault Kind = "interface-default"
	// KindInterfacePrivate moves private interface methods into companion classes.
	KindInterfacePrivate Kind = "interface-private"
	// KindBackport redirects calls to library methods missing on older platforms.
	KindBackport Kind = "backport"
	// KindTwrSuppressed removes the suppressed-exception calls emitted by try-with-resources.
	KindTwrSuppressed Kind = "twr-suppressed"
)

// Always is the threshold of kinds no platform version executes natively.
const Always = math.MaxInt

var thresholds = map[Kind]int{
	KindLambda:           Always,
	KindStringConcat:     Always,
	KindInterfaceStatic:  24,
	KindInterfaceDefault: 24,
	KindInterfacePrivate: 24,
	KindBackport:         24,
	KindTwrSuppressed:    19,
}

// Kinds lists every rewrite kind in application order.
func Kinds() []Kind {
	return []Kind{
		KindLambda, KindStringConcat,
		KindInterfaceStatic, KindInterfaceDefault, KindInterfacePrivate,
		KindBackport, KindTwrSuppressed,
	}
}

// Threshold returns the first platform version that no longer needs kind k.
func Threshold(k Kind) int {
	return thresholds[k]
}

// Plan selects the rewrites for one minimum platform version.
type Plan struct {
	MinAPI int
}

// NewPlan returns the plan for minAPI.
func NewPlan(minAPI int) Plan {
	return Plan{MinAPI: minAPI}
}

// Applies reports whether rewrites of kind k are needed.
func (p Plan) Applies(k Kind) bool {
	return p.MinAPI < Threshold(k)
}

// below reports whether a construct introduced at api needs a rewrite.
func (p Plan) below(api int) bool {
	return p.MinAPI < api
}

// Kinds returns the applicable kinds in application order.
func (p Plan) Kinds() []Kind {
	return slices.DeleteFunc(Kinds(), func(k Kind) bool { return !p.Applies(k) })
}

// Classpath resolves library classes referenced by the program.
type Classpath interface {
	Lookup(binaryName string) (ports.ClassHeader, bool, error)
}

// Result is the desugared program.
type Result struct {
	// Classes holds the program classes followed by the synthetic classes, in creation order.
	Classes []*dalvik.Class
	// Rewrites counts the applied rewrites per kind.
	Rewrites map[string]int
	// Warnings lists constructs left untouched that may fail on the minimum platform version.
	Warnings []string
	// Origin maps every synthetic class descriptor to the program class it was created for.
	Origin map[string]string
}

// Desugarer applies a plan against a set of classpaths.
type Desugarer struct {
	plan      Plan
	classpath []Classpath
}

// New returns a desugarer for plan. Library classes are resolved in classpath order.
func New(plan Plan, classpath ...Classpath) *Desugarer {
	return &Desugarer{plan: plan, classpath: classpath}
}

// Run rewrites classes in place and returns them with the synthetic classes they need.
// The output is a pure function of the input order and the plan.
func (d *Desugarer) Run(classes []*dalvik.Class) (Result, error) {
	r := &run{
		d:        d,
		program:  make(map[string]*dalvik.Class, len(classes)),
		classes:  slices.Clone(classes),
		counters: make(map[string]int),
		rewrites: make(map[string]int),
		origin:   make(map[string]string),
	}
	for _, c := range classes {
		r.program[c.Type] = c
	}
	steps := []struct {
		enabled bool
		fn      func() error
	}{
		{d.plan.Applies(KindLambda), r.lambdas},
		{d.plan.Applies(KindStringConcat), r.concats},
		{d.plan.Applies(KindInterfaceStatic), r.interfaces},
		{d.plan.Applies(KindBackport) || d.plan.Applies(KindTwrSuppressed), r.backports},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := s.fn(); err != nil {
			return Result{}, err
		}
	}
	return Result{Classes: r.classes, Rewrites: r.rewrites, Warnings: r.warnings, Origin: r.origin}, nil
}

type run struct {
	d        *Desugarer
	program  map[string]*dalvik.Class
	classes  []*dalvik.Class
	counters map[string]int
	rewrites map[string]int
	warnings []string
	origin   map[string]string
}

func (r *run) count(k Kind) {
	r.rewrites[string(k)]++
}

func (r *run) warn(msg string) {
	if !slices.Contains(r.warnings, msg) {
		r.warnings = append(r.warnings, msg)
	}
}

// addClass registers a synthetic class created for outer so that later steps rewrite it too.
func (r *run) addClass(c *dalvik.Class, outer string) {
	if o, ok := r.origin[outer]; ok {
		outer = o
	}
	r.program[c.Type] = c
	r.classes = append(r.classes, c)
	r.origin[c.Type] = outer
}

// syntheticType returns the next free synthetic class descriptor next to outer.
func (r *run) syntheticType(outer, suffix string) string {
	key := outer + suffix
	n := r.counters[key]
	r.counters[key] = n + 1
	return strings.TrimSuffix(outer, ";") + "$$ExternalSynthetic" + suffix + strconv.Itoa(n) + ";"
}

// lookup resolves a class descriptor against the program, then the classpath.
func (r *run) lookup(desc string) (ports.ClassHeader, bool, error) {
	if c, ok := r.program[desc]; ok {
		return ports.ClassHeader{
			Name:        classfile.InternalName(c.Type),
			SuperName:   classfile.InternalName(c.Super),
			Interfaces:  mapSlice(c.Interfaces, classfile.InternalName),
			AccessFlags: uint16(c.Access),
		}, true, nil
	}
	for _, cp := range r.d.classpath {
		h, ok, err := cp.Lookup(classfile.InternalName(desc))
		if err != nil || ok {
			return h, ok, err
		}
	}
	return ports.ClassHeader{}, false, nil
}

// bodies calls fn for every method body of every class, synthetic classes included.
func (r *run) bodies(fn func(c *dalvik.Class, m *dalvik.Method) error) error {
	for i := 0; i < len(r.classes); i++ {
		c := r.classes[i]
		for j := 0; j < len(c.Methods); j++ {
			m := c.Methods[j]
			if m.Code == nil {
				continue
			}
			if err := fn(c, m); err != nil {
				class := c.Type
				if o, ok := r.origin[class]; ok {
					class = o
				}
				return &dalvik.ClassError{Class: class, Err: zerr.With(err, "method", m.Ref.Key())}
			}
		}
	}
	return nil
}

// rewrite rebuilds b, letting fn replace instructions through the emitter.
// Instructions for which fn reports false are kept.
func rewrite(b *dalvik.Body, fn func(e *dalvik.Emitter, in dalvik.Insn) (bool, error)) error {
	old := b.Insns
	b.Insns = make([]dalvik.Insn, 0, len(old))
	e := dalvik.NewEmitter(b)
	for _, in := range old {
		done, err := fn(e, in)
		if err != nil {
			return err
		}
		if !done {
			e.Emit(in)
		}
	}
	return nil
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
