package generate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/zhengyp36/crash-ext-tools/pkg/manifest"
	"github.com/zhengyp36/crash-ext-tools/pkg/parser"
)

// Result describes what happened to one .in file.
type Result struct {
	Input   string
	Output  string
	Skipped bool // header already current
	Stats   parser.Stats
}

// Run generates the header of every input. Inputs whose header is current
// according to the manifest, and was generated with the same options and
// backend, are skipped unless opts.Force is set. Nothing is written for an
// input that fails.
func Run(ctx context.Context, opts *parser.Options, inputs ...string) ([]Result, error) {
	if len(inputs) == 0 {
		return nil, errors.WithHint(errors.New("no input files"), "pass one or more .in files")
	}

	m, err := manifest.Load(opts.Manifest)
	if err != nil {
		return nil, err
	}
	optsDigest, err := OptionsDigest(opts)
	if err != nil {
		return nil, err
	}

	var (
		p       *parser.Parser
		results = make([]Result, 0, len(inputs))
	)
	defer func() {
		if p != nil {
			if cerr := p.Close(); cerr != nil {
				slog.Error("close parser", "error", cerr)
			}
		}
	}()

	for _, in := range inputs {
		res := Result{Input: in, Output: opts.OutputPath(in)}

		if !opts.Force {
			current, err := m.IsCurrent(in, res.Output, optsDigest)
			if err != nil {
				return results, err
			}
			if current {
				slog.Info("header is up to date", "input", in, "output", res.Output)
				res.Skipped = true
				results = append(results, res)
				continue
			}
		}

		if p == nil {
			if p, err = parser.NewWithOpts(opts); err != nil {
				return results, err
			}
		}

		content, err := Header(ctx, p, in, res.Output)
		if err != nil {
			return results, err
		}
		if err := WriteFileAtomic(res.Output, []byte(content)); err != nil {
			return results, err
		}

		inDigest, err := manifest.FileDigest(in)
		if err != nil {
			return results, err
		}
		res.Stats = p.Stats()
		m.AddHeader(manifest.Header{
			Input:         in,
			Output:        res.Output,
			InputDigest:   inDigest,
			OutputDigest:  manifest.Digest([]byte(content)),
			OptionsDigest: optsDigest,
			Roots:         res.Stats.Roots,
			Types:         res.Stats.Types,
		})
		if err := m.Save(opts.Manifest); err != nil {
			return results, err
		}

		slog.Info("header generated", "input", in, "output", res.Output, "summary", res.Stats.String())
		results = append(results, res)
	}

	return results, nil
}

// OptionsDigest identifies the options and backend that shape a header's
// content. A replay backend is identified by its session content, gdb by
// its command lines.
func OptionsDigest(opts *parser.Options) (string, error) {
	o := *opts
	o.Normalize()

	id := struct {
		GuardPrefix   string   `yaml:"guard_prefix"`
		FilePrefix    string   `yaml:"file_prefix"`
		Backend       string   `yaml:"backend"`
		GDBCommand    string   `yaml:"gdb_command,omitempty"`
		ModuleCommand string   `yaml:"module_command,omitempty"`
		Session       string   `yaml:"session,omitempty"`
		ExcludeTypes  []string `yaml:"exclude_types,omitempty"`
	}{
		GuardPrefix:  o.GuardPrefix,
		FilePrefix:   o.FilePrefix,
		Backend:      o.Backend,
		ExcludeTypes: slices.Compact(slices.Sorted(slices.Values(o.ExcludeTypes))),
	}
	switch o.Backend {
	case parser.BackendReplay:
		d, err := manifest.FileDigest(o.ReplayFile)
		if err != nil {
			return "", errors.WithHint(err, "check --replay-file")
		}
		id.Session = d
	default:
		id.GDBCommand = o.GDBCommand
		id.ModuleCommand = o.ModuleCommand
	}

	data, err := yaml.Marshal(id)
	if err != nil {
		return "", errors.Wrap(err, "marshal options")
	}
	return manifest.Digest(data), nil
}

// Header parses one .in file and returns the content of its header.
func Header(ctx context.Context, p *parser.Parser, input, output string) (string, error) {
	if err := p.ParseFile(ctx, input); err != nil {
		return "", err
	}
	lines, err := p.Generate(output)
	if err != nil {
		return "", err
	}
	return parser.Render(lines), nil
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err = tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "chmod %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "rename to %s", path)
}
