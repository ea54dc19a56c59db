package parser

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/zhengyp36/crash-ext-tools/internal/backend"
	"github.com/zhengyp36/crash-ext-tools/internal/model"
)

// enumWrapWidth is the length past which an enum literal is split one
// member per line.
const enumWrapWidth = 60

// Excluder reports whether a type name must be emitted as an opaque
// placeholder instead of being expanded.
type Excluder interface {
	Contains(name string) bool
}

type noExcludes struct{}

func (noExcludes) Contains(string) bool { return false }

// Resolver turns root descriptors into a dependency-ordered Registry,
// querying the backend for every type it has to expand. A Resolver serves a
// single generation run.
type Resolver struct {
	backend  backend.Backend
	excludes Excluder
	registry *Registry
	log      *slog.Logger

	chain     []string
	resolving map[string]bool
	queries   int
}

// NewResolver initializes a Resolver with an empty registry.
func NewResolver(b backend.Backend, excludes Excluder, log *slog.Logger) *Resolver {
	if excludes == nil {
		excludes = noExcludes{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		backend:   b,
		excludes:  excludes,
		registry:  NewRegistry(),
		log:       log,
		resolving: make(map[string]bool),
	}
}

func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Queries reports how many backend queries the resolver issued.
func (r *Resolver) Queries() int {
	return r.queries
}

// Resolve makes d and everything it depends on present in the registry and
// returns the descriptor that satisfies d. Resolving an already satisfied
// request is a no-op.
func (r *Resolver) Resolve(ctx context.Context, d model.Descriptor) (model.Descriptor, error) {
	if d.Kind == model.KindInvalid {
		return d, invariantErrorf("resolve of an unclassified descriptor %q", d.Name)
	}
	if d.Kind == model.KindEnum {
		d.Mode = model.ModeStrong
	}
	d.Skip = d.Kind != model.KindBase && d.Kind != model.KindBuiltin && r.excludes.Contains(d.Name)

	// 1) Already satisfied: strong form, or weak form for a weak request.
	if prev, ok := r.registry.Satisfied(d); ok {
		return prev, nil
	}

	tag := d.Tag()
	if r.resolving[tag] {
		return d, r.annotate(invariantErrorf("recursive resolution of %s", tag))
	}
	r.resolving[tag] = true
	r.chain = append(r.chain, tag)
	defer func() {
		delete(r.resolving, tag)
		r.chain = r.chain[:len(r.chain)-1]
	}()

	if err := ctx.Err(); err != nil {
		return d, err
	}
	r.log.Log(ctx, slog.Level(-8), "resolve", "tag", tag, "depth", len(r.chain))

	// 2) Produce the declaration text, collecting further dependencies.
	d.Deps = d.Deps.Clone()
	var err error
	switch {
	case d.Skip:
		d.Text = []string{model.TextSkip}
		d.Deps = model.Deps{}
	case d.Kind == model.KindBase:
		d.Text = []string{model.TextBase}
	case d.Kind == model.KindBuiltin:
		d.Text = []string{model.TextBuiltin}
	case d.Kind == model.KindAlias:
		err = r.resolveAlias(ctx, &d)
	case d.Kind.IsAggregate():
		err = r.resolveAggregate(ctx, &d)
	case d.Kind == model.KindEnum:
		err = r.resolveEnum(ctx, &d)
	case d.Kind == model.KindFunction:
		err = r.resolveFunction(ctx, &d)
	default:
		err = invariantErrorf("unknown kind %s", d.Kind)
	}
	if err != nil {
		return d, r.annotate(err)
	}

	// 3) Dependencies first, so they precede d in emission order.
	if err := r.resolveDeps(ctx, d); err != nil {
		return d, err
	}

	// 4) Register. Multi-word function names only contribute dependencies.
	if d.Kind == model.KindFunction && len(strings.Fields(d.Name)) != 1 {
		return d, nil
	}
	if err := r.registry.Insert(d); err != nil {
		return d, r.annotate(err)
	}
	r.log.Debug("registered", "tag", tag, "deps", d.Deps.Len())
	return d, nil
}

func (r *Resolver) resolveDeps(ctx context.Context, d model.Descriptor) error {
	deps := d.Deps.Values()

	// A typedef of a forward-declared struct/union needs no body: this is
	// what breaks mutually recursive typedef/struct pairs.
	if d.Kind == model.KindAlias && len(deps) == 1 &&
		deps[0].Kind.IsAggregate() && deps[0].Mode == model.ModeWeak {
		return nil
	}

	for _, dep := range deps {
		if dep.Name == d.Name && dep.Kind == d.Kind {
			if dep.Mode != model.ModeWeak || !dep.Kind.IsAggregate() {
				return r.annotate(invariantErrorf("%s refers to itself by value", d.Tag()))
			}
			continue
		}
		if _, err := r.Resolve(ctx, dep); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveAlias(ctx context.Context, d *model.Descriptor) error {
	text, err := r.whatis(ctx, d.Name)
	if err != nil {
		return err
	}

	switch {
	case strings.Contains(text, "{...}"):
		lines, err := r.ptype(ctx, d.Name)
		if err != nil {
			return err
		}
		body, err := Parse(lines, false, model.ModeStrong)
		if err != nil {
			return err
		}
		if !body.Kind.IsAggregate() && body.Kind != model.KindEnum {
			return grammarErrorf(text, "typedef %s has an unexpected body", d.Name)
		}
		d.Deps.Merge(body.Deps)
		d.Text = declare(body.Template, d.Name, true)

	case strings.Contains(text, "("):
		lines, deps, err := r.functionTypedef(ctx, d.Name)
		if err != nil {
			return err
		}
		d.Deps.Merge(deps)
		d.Text = lines

	default:
		target, err := Parse([]string{text}, false, d.Mode)
		if err != nil {
			return err
		}
		d.Deps.Add(target)
		d.Text = declare(target.Template, d.Name, true)
	}
	return nil
}

func (r *Resolver) resolveAggregate(ctx context.Context, d *model.Descriptor) error {
	if d.Mode == model.ModeWeak {
		d.Text = []string{d.Name + ";"}
		return nil
	}

	lines, err := r.ptype(ctx, d.Name)
	if err != nil {
		return err
	}
	if len(lines) < 2 {
		return grammarErrorf(strings.Join(lines, " "), "%s has no body", d.Name)
	}
	body, err := Parse(lines, false, model.ModeStrong)
	if err != nil {
		return err
	}
	if body.Kind != d.Kind {
		return withBody(grammarErrorf(lines[0], "expected a %s body", d.Kind), lines)
	}
	d.Deps.Merge(body.Deps)
	d.Text = declare(body.Template, "", false)
	return nil
}

func (r *Resolver) resolveEnum(ctx context.Context, d *model.Descriptor) error {
	lines, err := r.ptype(ctx, d.Name)
	if err != nil {
		return err
	}
	if len(lines) != 1 {
		return withBody(grammarErrorf(lines[0], "enum body spans %d lines", len(lines)), lines)
	}
	body, err := Parse(lines, false, model.ModeStrong)
	if err != nil {
		return err
	}
	if body.Kind != model.KindEnum {
		return grammarErrorf(lines[0], "expected an enum body")
	}
	d.Text = declare(body.Template, "", false)
	return nil
}

func (r *Resolver) resolveFunction(ctx context.Context, d *model.Descriptor) error {
	if len(d.Template) > 0 {
		d.Text = declare(d.Template, d.Name, true)
		return nil
	}
	lines, deps, err := r.functionTypedef(ctx, d.Name)
	if err != nil {
		return err
	}
	d.Deps.Merge(deps)
	d.Text = lines
	return nil
}

// functionTypedef synthesizes the typedef of a function-typed name from the
// signature of a pointer to it.
func (r *Resolver) functionTypedef(ctx context.Context, name string) ([]string, model.Deps, error) {
	lines, err := r.ptype(ctx, name+"*")
	if err != nil {
		return nil, model.Deps{}, err
	}
	if len(lines) != 1 {
		return nil, model.Deps{}, withBody(grammarErrorf(lines[0], "multi-line signature for %s", name), lines)
	}
	sig, err := splitSignature(lines[0], false)
	if err != nil {
		return nil, model.Deps{}, err
	}
	if !sig.declarator || sig.stars == "" {
		return nil, model.Deps{}, grammarErrorf(lines[0], "%s* is not a function pointer", name)
	}
	deps, err := sig.deps(lines[0])
	if err != nil {
		return nil, model.Deps{}, err
	}

	sig.stars = sig.stars[1:]
	sig.array = ""
	return declare([]string{sig.template()}, name, true), deps, nil
}

// annotate attaches the current resolution chain to err.
func (r *Resolver) annotate(err error) error {
	if len(r.chain) == 0 {
		return err
	}
	return errors.WithDetailf(err, "resolution chain:\n\t%s", strings.Join(r.chain, "\n\t-> "))
}

// declare substitutes name into a template and finalizes it as a C
// declaration ending in ';'.
func declare(template []string, name string, typedef bool) []string {
	out := make([]string, len(template))
	for i, line := range template {
		out[i] = strings.ReplaceAll(line, model.Placeholder, name)
	}
	if typedef {
		out[0] = "typedef " + out[0]
	}
	if len(out) == 1 && isEnumLiteral(out[0]) {
		out = prettyEnum(out[0])
	}

	last := strings.TrimSpace(out[len(out)-1])
	if !strings.HasSuffix(last, ";") {
		last += ";"
	}
	out[len(out)-1] = last
	return out
}

func isEnumLiteral(line string) bool {
	if !strings.Contains(line, "{") {
		return false
	}
	for _, w := range strings.Fields(line[:strings.Index(line, "{")]) {
		if w == "enum" {
			return true
		}
	}
	return false
}

// prettyEnum normalizes the spacing of a one-line enum and, when it is
// longer than enumWrapWidth, puts each member on its own line.
func prettyEnum(line string) []string {
	open, end := strings.Index(line, "{"), strings.LastIndex(line, "}")
	head := strings.Join(append(strings.Fields(line[:open]), "{"), " ")
	members := enumMembers(line)
	tail := strings.Join(append([]string{"}"}, strings.Fields(line[end+1:])...), " ")

	flat := head + strings.Join(members, ", ") + tail
	if len(flat) <= enumWrapWidth {
		return []string{flat}
	}

	out := make([]string, 0, len(members)+2)
	out = append(out, head)
	for i, m := range members {
		if i < len(members)-1 {
			m += ","
		}
		out = append(out, "\t"+m)
	}
	return append(out, tail)
}
