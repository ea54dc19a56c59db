package generate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhengyp36/crash-ext-tools/pkg/manifest"
	"github.com/zhengyp36/crash-ext-tools/pkg/parser"
)

const fixtures = "../../../test/testdata/fixtures"

// setup copies the canonical types fixture into a temp dir and returns the
// input path and options replaying its recorded session.
func setup(t *testing.T) (string, *parser.Options) {
	t.Helper()
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(fixtures, "canonical", "types.in"))
	require.NoError(t, err)
	in := filepath.Join(dir, "types.in")
	require.NoError(t, os.WriteFile(in, data, 0o644))

	opts := parser.Apply(
		parser.WithReplayFile(filepath.Join(fixtures, "canonical", "types.replay.yaml")),
		parser.WithOutDir(filepath.Join(dir, "include")),
		parser.WithManifest(filepath.Join(dir, ".ctypgen.yaml")),
	)
	return in, opts
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	in, opts := setup(t)

	results, err := Run(ctx, opts, in)
	require.NoError(t, err)
	require.Len(t, results, 1)
	res := results[0]
	assert.False(t, res.Skipped)
	assert.Equal(t, filepath.Join(filepath.Dir(in), "include", "types.h"), res.Output)
	assert.Equal(t, parser.Stats{Roots: 8, Types: 9, Queries: 9}, res.Stats)

	got, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(fixtures, "expectations", "types.h"))
	require.NoError(t, err)
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Errorf("generated header mismatch (-want +got):\n%s", diff)
	}

	m, err := manifest.Load(opts.Manifest)
	require.NoError(t, err)
	h, ok := m.Header(in)
	require.True(t, ok)
	assert.Equal(t, manifest.Digest(got), h.OutputDigest)
	assert.Equal(t, 8, h.Roots)

	// A second run finds the header current.
	results, err = Run(ctx, opts, in)
	require.NoError(t, err)
	assert.True(t, results[0].Skipped)

	// Editing the input makes it stale again.
	f, err := os.OpenFile(in, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("# trailing comment\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	results, err = Run(ctx, opts, in)
	require.NoError(t, err)
	assert.False(t, results[0].Skipped)

	opts.Force = true
	results, err = Run(ctx, opts, in)
	require.NoError(t, err)
	assert.False(t, results[0].Skipped)
}

func TestRunFailureWritesNothing(t *testing.T) {
	in, opts := setup(t)
	require.NoError(t, os.WriteFile(in, []byte("struct not_recorded\n"), 0o644))

	_, err := Run(context.Background(), opts, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrBackend)
	assert.NoFileExists(t, opts.OutputPath(in))
	assert.NoFileExists(t, opts.Manifest)
}

func TestRunNoInputs(t *testing.T) {
	_, err := Run(context.Background(), parser.Apply())
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b.h")
	require.NoError(t, WriteFileAtomic(path, []byte("one\n")))
	require.NoError(t, WriteFileAtomic(path, []byte("two\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRunOptionsChange(t *testing.T) {
	ctx := context.Background()
	in, opts := setup(t)

	_, err := Run(ctx, opts, in)
	require.NoError(t, err)

	changed := *opts
	changed.GuardPrefix = "MY_GUARD_"
	changed.ExcludeTypes = []string{"struct node"}
	results, err := Run(ctx, &changed, in)
	require.NoError(t, err)
	assert.False(t, results[0].Skipped, "new options make the header stale")

	got, err := os.ReadFile(results[0].Output)
	require.NoError(t, err)
	assert.Contains(t, string(got), "#ifndef MY_GUARD_STRUCT_LIST_HEAD_STRONG")
	assert.NotContains(t, string(got), "struct node {")

	results, err = Run(ctx, &changed, in)
	require.NoError(t, err)
	assert.True(t, results[0].Skipped)
}

func TestOptionsDigest(t *testing.T) {
	_, opts := setup(t)
	base, err := OptionsDigest(opts)
	require.NoError(t, err)

	same := *opts
	same.Force = true
	same.CacheSize = 1
	same.RecordFile = "other.yaml"
	got, err := OptionsDigest(&same)
	require.NoError(t, err)
	assert.Equal(t, base, got, "options that do not shape the header")

	tests := map[string]func(o *parser.Options){
		"guard prefix":  func(o *parser.Options) { o.GuardPrefix = "X_" },
		"file prefix":   func(o *parser.Options) { o.FilePrefix = "_X_" },
		"exclude types": func(o *parser.Options) { o.ExcludeTypes = []string{"struct node"} },
		"replay session": func(o *parser.Options) {
			o.ReplayFile = filepath.Join(fixtures, "canonical", "cycle.replay.yaml")
		},
		"gdb backend": func(o *parser.Options) { o.Backend = parser.BackendGDB },
	}
	for name, change := range tests {
		t.Run(name, func(t *testing.T) {
			o := *opts
			change(&o)
			got, err := OptionsDigest(&o)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}

	gdb := parser.Apply(parser.WithGDBCommand("gdb -batch -nx vmlinux"))
	a, err := OptionsDigest(gdb)
	require.NoError(t, err)
	gdb.GDBCommand = "gdb -batch -nx vmlinux-6.1"
	b, err := OptionsDigest(gdb)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "gdb command line")

	missing := *opts
	missing.ReplayFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = OptionsDigest(&missing)
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	in, opts := setup(t)
	data, err := os.ReadFile(in)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type event struct {
		res Result
		err error
	}
	events := make(chan event, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, opts, func(res Result, err error) {
			select {
			case events <- event{res, err}:
			default:
			}
		}, in)
	}()

	// The watcher may not be registered yet, so the input is rewritten
	// until a regeneration is reported.
	var got event
	deadline := time.After(10 * time.Second)
wait:
	for {
		require.NoError(t, WriteFileAtomic(in, data))
		select {
		case got = <-events:
			break wait
		case err := <-done:
			t.Fatalf("watch returned early: %v", err)
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no regeneration reported")
		}
	}

	require.NoError(t, got.err)
	assert.Equal(t, in, got.res.Input)
	assert.False(t, got.res.Skipped)
	assert.Equal(t, 8, got.res.Stats.Roots)

	header, err := os.ReadFile(got.res.Output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(header), "#ifndef _CRASH_AUTO_HEAD_TYPES_H_"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
