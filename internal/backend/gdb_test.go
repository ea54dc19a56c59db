package backend

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGDB(t *testing.T, out string, runErr error) (*GDB, *[][]string) {
	t.Helper()
	g, err := NewGDB(`gdb -batch -nx "/usr/lib/debug/vmlinux 6.1"`)
	require.NoError(t, err)
	var calls [][]string
	g.run = func(_ context.Context, argv []string) ([]byte, error) {
		calls = append(calls, argv)
		return []byte(out), runErr
	}
	return g, &calls
}

func TestGDBQuery(t *testing.T) {
	ctx := context.Background()
	g, calls := fakeGDB(t, "Reading symbols from vmlinux...\r\nwarning: no loadable sections\r\ntype = struct foo {\r\n    int a;\r\n}\r\n\r\n", nil)

	lines, err := g.Ptype(ctx, "struct foo")
	require.NoError(t, err)
	assert.Equal(t, []string{"type = struct foo {", "    int a;", "}"}, lines)
	assert.Equal(t, [][]string{
		{"gdb", "-batch", "-nx", "/usr/lib/debug/vmlinux 6.1", "-ex", "ptype struct foo"},
	}, *calls)

	_, err = g.Whatis(ctx, "struct foo")
	require.ErrorIs(t, err, ErrQuery, "multi-line whatis")
}

func TestGDBModules(t *testing.T) {
	ctx := context.Background()
	g, calls := fakeGDB(t, "type = unsigned long\n", nil)

	require.NoError(t, g.LoadModules(ctx, []string{"ext4.ko.debug", "xfs.ko.debug"}))
	require.NoError(t, g.LoadModules(ctx, []string{"ext4.ko.debug"}))
	assert.Equal(t, []string{"ext4.ko.debug", "xfs.ko.debug"}, g.Modules())

	v, err := g.Whatis(ctx, "my_size_t")
	require.NoError(t, err)
	assert.Equal(t, "type = unsigned long", v)

	require.NoError(t, g.RemoveModules(ctx, []string{"ext4.ko.debug"}))
	_, err = g.Whatis(ctx, "my_size_t")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"gdb", "-batch", "-nx", "/usr/lib/debug/vmlinux 6.1",
			"-ex", "add-symbol-file ext4.ko.debug",
			"-ex", "add-symbol-file xfs.ko.debug",
			"-ex", "whatis my_size_t"},
		{"gdb", "-batch", "-nx", "/usr/lib/debug/vmlinux 6.1",
			"-ex", "add-symbol-file xfs.ko.debug",
			"-ex", "whatis my_size_t"},
	}, *calls)

	g.ModuleCommand = "add-symbol-file"
	err = g.LoadModules(ctx, []string{"btrfs"})
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestGDBErrors(t *testing.T) {
	ctx := context.Background()

	g, _ := fakeGDB(t, "No symbol \"nope\" in current context.\n", nil)
	_, err := g.Whatis(ctx, "nope")
	require.ErrorIs(t, err, ErrQuery)
	assert.Contains(t, errors.FlattenDetails(err), `No symbol "nope" in current context.`)

	g, _ = fakeGDB(t, "gdb: not found\n", errors.New("exit status 127"))
	_, err = g.Ptype(ctx, "struct foo")
	require.ErrorIs(t, err, ErrQuery)
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, []string{"gdb: not found"}, qe.Output)

	_, err = NewGDB("")
	assert.Error(t, err)
	_, err = NewGDB(`gdb "unterminated`)
	assert.Error(t, err)
}
