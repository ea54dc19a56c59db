package parser

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/jinzhu/inflection"

	"github.com/zhengyp36/crash-ext-tools/internal/backend"
	"github.com/zhengyp36/crash-ext-tools/internal/model"
	iparser "github.com/zhengyp36/crash-ext-tools/internal/parser"
)

// Error marks re-exported for callers outside the module.
var (
	ErrGrammar   = iparser.ErrGrammar
	ErrBackend   = iparser.ErrBackend
	ErrInvariant = iparser.ErrInvariant
)

// Parser holds state/results of a generation run. Each call to Parse starts
// from an empty registry and a fresh query cache.
type Parser struct {
	Opts Options

	Input *model.Input

	source   backend.Backend
	recorder *backend.Recorder
	resolver *iparser.Resolver
	log      *slog.Logger
}

// Stats summarizes the last run.
type Stats struct {
	Roots   int
	Types   int
	Queries int
}

func (s Stats) String() string {
	return pluralize(s.Types, "type") + " from " + pluralize(s.Roots, "root") +
		", " + pluralize(s.Queries, "query")
}

func pluralize(n int, word string) string {
	if n != 1 {
		word = inflection.Plural(word)
	}
	return strconv.Itoa(n) + " " + word
}

// New opens the backend named by opts.
func New(opts ...Option) (*Parser, error) {
	return NewWithOpts(Apply(opts...))
}

func NewWithOpts(opts *Options) (*Parser, error) {
	if opts == nil {
		opts = NewOptions()
	}
	o := *opts
	o.Normalize()

	var (
		src backend.Backend
		err error
	)
	switch o.Backend {
	case BackendGDB:
		var g *backend.GDB
		if g, err = backend.NewGDB(o.GDBCommand); err == nil {
			g.ModuleCommand = o.ModuleCommand
			src = g
		}
	case BackendReplay:
		if o.ReplayFile == "" {
			return nil, errors.WithHint(errors.New("replay backend without a session file"),
				"pass --replay-file <file.replay.yaml>")
		}
		src, err = backend.OpenReplay(o.ReplayFile)
	default:
		return nil, errors.WithHintf(errors.Newf("unknown backend %q", o.Backend),
			"use %q or %q", BackendGDB, BackendReplay)
	}
	if err != nil {
		return nil, err
	}
	return NewWithBackend(src, &o), nil
}

// NewWithBackend uses b instead of opening the backend named by opts.
func NewWithBackend(b backend.Backend, opts *Options) *Parser {
	if opts == nil {
		opts = NewOptions()
	}
	p := &Parser{
		Opts:   *opts,
		source: b,
		log:    slog.Default().With("component", "parser"),
	}
	p.Opts.Normalize()
	if p.Opts.RecordFile != "" {
		p.recorder = backend.NewRecorder(b)
		p.source = p.recorder
	}
	return p
}

// ParseFile reads a .in file and resolves it.
func (p *Parser) ParseFile(ctx context.Context, path string) error {
	in, err := iparser.ReadInput(path)
	if err != nil {
		return err
	}
	return p.Parse(ctx, in)
}

// Parse resolves every root of in, applying module directives in file order.
// Exclusions are collected before the first root is resolved.
func (p *Parser) Parse(ctx context.Context, in *model.Input) error {
	p.Input = in

	var (
		b     = p.source
		cache *backend.Cached
	)
	if p.Opts.CacheSize > 0 {
		c, err := backend.NewCached(p.source, p.Opts.CacheSize)
		if err != nil {
			return errors.Wrap(err, "create query cache")
		}
		b, cache = c, c
	}

	excludes := NewExcludeSet(p.Opts.ExcludeTypes...)
	for _, r := range in.Skips() {
		d, err := iparser.Parse([]string{r.Text}, false, model.ModeStrong)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", in.Path, r.Line)
		}
		excludes.Add(d.Name)
	}

	p.resolver = iparser.NewResolver(b, excludes, p.log)
	p.log.Debug("parse", "input", in.Path, "roots", len(in.Roots), "excluded", len(excludes))

	for _, s := range steps(in) {
		if s.module != nil {
			if err := p.applyModules(ctx, b, *s.module); err != nil {
				return errors.Wrapf(err, "%s:%d", in.Path, s.module.Line)
			}
			continue
		}

		d, err := iparser.Parse([]string{s.root.Text}, false, model.ModeStrong)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", in.Path, s.root.Line)
		}
		if _, err = p.resolver.Resolve(ctx, d); err != nil {
			return errors.Wrapf(err, "%s:%d", in.Path, s.root.Line)
		}
	}
	if cache != nil {
		p.log.Debug("parsed", "input", in.Path, "queries", p.resolver.Queries(), "cached", cache.Len())
	}
	return nil
}

type step struct {
	line   int
	root   *model.Root
	module *model.ModuleDirective
}

func steps(in *model.Input) []step {
	out := make([]step, 0, len(in.Roots)+len(in.Modules))
	for i := range in.Roots {
		out = append(out, step{line: in.Roots[i].Line, root: &in.Roots[i]})
	}
	for i := range in.Modules {
		out = append(out, step{line: in.Modules[i].Line, module: &in.Modules[i]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].line < out[j].line })
	return out
}

func (p *Parser) applyModules(ctx context.Context, b backend.Backend, m model.ModuleDirective) error {
	ml, ok := b.(backend.ModuleLoader)
	if !ok {
		p.log.Warn("backend cannot load modules, directive ignored", "modules", m.Names)
		return nil
	}

	var err error
	if m.Op == model.ModuleRemove {
		err = ml.RemoveModules(ctx, m.Names)
	} else {
		err = ml.LoadModules(ctx, m.Names)
	}
	if errors.Is(err, backend.ErrModulesUnsupported) {
		p.log.Warn("backend cannot load modules, directive ignored", "modules", m.Names)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "%s modules %v", m.Op, m.Names)
	}
	p.log.Debug("modules", "op", m.Op.String(), "names", m.Names)
	return nil
}

// Generate renders the header for the last parsed input.
func (p *Parser) Generate(outFile string) ([]string, error) {
	if p.resolver == nil {
		return nil, errors.New("generate called before parse")
	}
	return iparser.Emit(p.resolver.Registry(), iparser.EmitConfig{
		GuardPrefix: p.Opts.GuardPrefix,
		FilePrefix:  p.Opts.FilePrefix,
	}, outFile)
}

// Render joins generated lines into file content.
func Render(lines []string) string {
	return iparser.Render(lines)
}

// Tags returns the registry tags of the last run in resolution order.
func (p *Parser) Tags() []string {
	if p.resolver == nil {
		return nil
	}
	return p.resolver.Registry().Tags()
}

func (p *Parser) Stats() Stats {
	var s Stats
	if p.Input != nil {
		s.Roots = len(p.Input.Roots)
	}
	if p.resolver != nil {
		for _, d := range p.resolver.Registry().Entries() {
			if !d.IsSentinel() {
				s.Types++
			}
		}
		s.Queries = p.resolver.Queries()
	}
	return s
}

// Close saves the recorded session, if any.
func (p *Parser) Close() error {
	if p.recorder == nil {
		return nil
	}
	if err := p.recorder.Session().Save(p.Opts.RecordFile); err != nil {
		return errors.Wrap(err, "save recorded session")
	}
	p.log.Info("session recorded", "file", p.Opts.RecordFile)
	return nil
}
