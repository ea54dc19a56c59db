package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	. "github.com/zhengyp36/crash-ext-tools/pkg/parser"
)

func TestParse(ttt *testing.T) {
	inDir := "test/testdata/fixtures/canonical"
	outDir := "test/testdata/fixtures/expectations"
	type args struct {
		input string
		opts  []Option
	}
	tests := []struct {
		name      string
		args      args
		wantTags  []string
		wantStats Stats
		wantErr   bool
	}{
		{
			name: "parse with defaults",
			args: args{
				input: "types.in",
				opts: []Option{
					WithReplayFile(filepath.Join(inDir, "types.replay.yaml")),
					WithOutDir(outDir),
				},
			},
			wantTags: []string{
				"struct:list_head:strong",
				"<base>",
				"alias:my_size_t:strong",
				"alias:color_t:strong",
				"function:cb:strong",
				"struct:node:weak",
				"<builtin>",
				"alias:handler_t:strong",
				"struct:node:strong",
				"struct:opaque:strong",
				"struct:empty:strong",
				"struct:holder:strong",
			},
			wantStats: Stats{Roots: 8, Types: 9, Queries: 9},
		},
		{
			name: "parse with cache disabled",
			args: args{
				input: "types.in",
				opts: []Option{
					WithReplayFile(filepath.Join(inDir, "types.replay.yaml")),
					WithOutDir(outDir),
					WithCacheSize(0),
				},
			},
			wantStats: Stats{Roots: 8, Types: 9, Queries: 9},
		},
		{
			name: "parse alias cycle",
			args: args{
				input: "cycle.in",
				opts: []Option{
					WithReplayFile(filepath.Join(inDir, "cycle.replay.yaml")),
					WithOutDir(outDir),
				},
			},
			wantTags: []string{
				"alias:b_t:weak",
				"<base>",
				"struct:a:strong",
				"struct:b:strong",
				"alias:b_t:strong",
				"enum:long_enum:strong",
			},
			wantStats: Stats{Roots: 3, Types: 5, Queries: 5},
		},
		{
			name: "parse with missing replay file",
			args: args{
				input: "types.in",
				opts: []Option{
					WithReplayFile(filepath.Join(inDir, "missing.replay.yaml")),
				},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		ttt.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := Apply(tt.args.opts...)
			jsbyt, _ := json.MarshalIndent(o, "", "  ")
			t.Logf("Options: %v", string(jsbyt))

			got, err := NewWithOpts(o)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			in := filepath.Join(inDir, tt.args.input)
			require.NoError(t, got.ParseFile(context.Background(), in))

			outFile := got.Opts.OutputPath(in)
			lines, err := got.Generate(outFile)
			require.NoError(t, err)

			expectedBytes, err := os.ReadFile(outFile)
			require.NoError(t, err)
			actual := Render(lines)
			diff := cmp.Diff(string(expectedBytes), actual)
			require.Emptyf(t, diff, "Generate() diff (-want +got):\n%s", diff)

			if tt.wantTags != nil {
				require.Equal(t, tt.wantTags, got.Tags())
			}
			require.Equal(t, tt.wantStats, got.Stats())
		})
	}
}
