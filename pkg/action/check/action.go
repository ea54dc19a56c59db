package check

import (
	"context"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/zhengyp36/crash-ext-tools/pkg/action/generate"
	"github.com/zhengyp36/crash-ext-tools/pkg/parser"
)

// Result holds the difference between a header on disk and the header its
// input generates now. An empty Diff means the header is current.
type Result struct {
	Input   string
	Output  string
	Missing bool
	Diff    string
}

func (r Result) Stale() bool {
	return r.Missing || r.Diff != ""
}

// Run regenerates every input in memory and diffs it against the header on
// disk. Nothing is written.
func Run(ctx context.Context, opts *parser.Options, inputs ...string) ([]Result, error) {
	o := *opts
	o.RecordFile = ""

	p, err := parser.NewWithOpts(&o)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			slog.Error("close parser", "error", cerr)
		}
	}()

	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		res := Result{Input: in, Output: o.OutputPath(in)}

		want, err := generate.Header(ctx, p, in, res.Output)
		if err != nil {
			return results, err
		}

		got, err := os.ReadFile(res.Output)
		switch {
		case errors.Is(err, os.ErrNotExist):
			res.Missing = true
		case err != nil:
			return results, errors.Wrap(err, "read header")
		}

		res.Diff = cmp.Diff(string(got), want)
		results = append(results, res)
	}
	return results, nil
}
