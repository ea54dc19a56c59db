package generate

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/zhengyp36/crash-ext-tools/pkg/parser"
)

// Watch regenerates an input's header each time the input is written, until
// ctx is done. onResult, when set, is called after every regeneration.
func Watch(ctx context.Context, opts *parser.Options, onResult func(Result, error), inputs ...string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()

	watched := make(map[string]string, len(inputs))
	dirs := make(map[string]bool)
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return errors.Wrapf(err, "resolve %s", in)
		}
		watched[abs] = in
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		// editors replace files, so the directory is watched
		if err := w.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
		dirs[dir] = true
	}

	forced := *opts
	forced.Force = true
	slog.Info("watching inputs", "count", len(watched))

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			in, ok := watched[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}

			slog.Debug("input changed", "input", in, "op", ev.Op.String())
			results, err := Run(ctx, &forced, in)
			if err != nil {
				slog.Error("regenerate", "input", in, "error", err)
			}
			if onResult == nil {
				continue
			}
			var res Result
			if len(results) > 0 {
				res = results[0]
			} else {
				res = Result{Input: in, Output: opts.OutputPath(in)}
			}
			onResult(res, err)
		}
	}
}
