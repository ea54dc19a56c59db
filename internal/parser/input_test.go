package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhengyp36/crash-ext-tools/internal/model"
)

func TestParseInput(t *testing.T) {
	src := `# generated types for the demo module
#module: ext2, ext4
struct inode

  + my_size_t
-struct super_block
#  -module : ext2
int (*cb)(char *, int);
`
	in, err := ParseInput("demo.in", strings.NewReader(src))
	require.NoError(t, err)

	want := &model.Input{
		Path: "demo.in",
		Roots: []model.Root{
			{Line: 3, Text: "struct inode", Source: "struct inode"},
			{Line: 5, Text: "my_size_t", Source: "  + my_size_t"},
			{Line: 6, Text: "struct super_block", Skip: true, Source: "-struct super_block"},
			{Line: 8, Text: "int (*cb)(char *, int);", Source: "int (*cb)(char *, int);"},
		},
		Modules: []model.ModuleDirective{
			{Line: 2, Op: model.ModuleLoad, Names: []string{"ext2", "ext4"}},
			{Line: 7, Op: model.ModuleRemove, Names: []string{"ext2"}},
		},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("ParseInput() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []model.Root{want.Roots[2]}, in.Skips())
}

func TestParseInputErrors(t *testing.T) {
	for _, src := range []string{"-\n", "struct a\n+ \n", "# module:\n"} {
		_, err := ParseInput("bad.in", strings.NewReader(src))
		require.Error(t, err, src)
		assert.ErrorIs(t, err, ErrGrammar, src)
	}
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.in")
	require.NoError(t, os.WriteFile(path, []byte("struct a\n"), 0o644))

	in, err := ReadInput(path)
	require.NoError(t, err)
	assert.Equal(t, path, in.Path)
	assert.Len(t, in.Roots, 1)

	_, err = ReadInput(filepath.Join(t.TempDir(), "missing.in"))
	assert.Error(t, err)
}
