package backend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
)

const typePrefix = "type = "

// DefaultModuleCommand loads the debug information of one module; %s is the
// module name or path as written in the .in file.
const DefaultModuleCommand = "add-symbol-file %s"

// runFunc executes argv and returns its combined output.
type runFunc func(ctx context.Context, argv []string) ([]byte, error)

// GDB answers queries by running gdb in batch mode, one process per query.
// Repeated queries should go through Cached.
type GDB struct {
	argv []string
	run  runFunc

	// ModuleCommand is prepended once per loaded module to every query.
	ModuleCommand string
	modules       []string
}

// NewGDB parses a shell-style command line such as
//
//	gdb -batch -nx /usr/lib/debug/vmlinux
//
// Each query is appended to it as `-ex "<query>"`.
func NewGDB(command string) (*GDB, error) {
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "parse gdb command %q", command)
	}
	if len(argv) == 0 {
		return nil, errors.WithHint(errors.New("empty gdb command"), "set --gdb-command or generate.gdb_command")
	}
	return &GDB{argv: argv, run: execRun, ModuleCommand: DefaultModuleCommand}, nil
}

func execRun(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

func (g *GDB) Whatis(ctx context.Context, name string) (string, error) {
	cmd := whatisCommand(name)
	lines, err := g.query(ctx, cmd)
	if err != nil {
		return "", err
	}
	if len(lines) != 1 {
		return "", NewQueryError(cmd, lines, errors.Newf("expected one line, got %d", len(lines)))
	}
	return lines[0], nil
}

func (g *GDB) Ptype(ctx context.Context, name string) ([]string, error) {
	return g.query(ctx, ptypeCommand(name))
}

// LoadModules makes every later query load the named modules first.
func (g *GDB) LoadModules(_ context.Context, names []string) error {
	if !strings.Contains(g.ModuleCommand, "%s") {
		return errors.WithHintf(errors.Newf("module command %q has no %%s", g.ModuleCommand),
			"set generate.module_command, e.g. %q", DefaultModuleCommand)
	}
	for _, n := range names {
		if !slices.Contains(g.modules, n) {
			g.modules = append(g.modules, n)
		}
	}
	return nil
}

func (g *GDB) RemoveModules(_ context.Context, names []string) error {
	g.modules = slices.DeleteFunc(g.modules, func(m string) bool {
		return slices.Contains(names, m)
	})
	return nil
}

// Modules returns the modules loaded before each query.
func (g *GDB) Modules() []string {
	return slices.Clone(g.modules)
}

func (g *GDB) query(ctx context.Context, query string) ([]string, error) {
	argv := make([]string, 0, len(g.argv)+2*len(g.modules)+2)
	argv = append(argv, g.argv...)
	for _, m := range g.modules {
		argv = append(argv, "-ex", fmt.Sprintf(g.ModuleCommand, m))
	}
	argv = append(argv, "-ex", query)

	slog.Log(ctx, slog.Level(-8), "gdb query", "argv", shellquote.Join(argv...))
	out, runErr := g.run(ctx, argv)
	lines := TrimBlank(strings.Split(strings.ReplaceAll(string(out), "\r\n", "\n"), "\n"))
	if runErr != nil {
		return nil, NewQueryError(query, lines, runErr)
	}
	return answerLines(query, lines)
}

// answerLines drops gdb's banner and warnings that precede the "type = "
// line.
func answerLines(query string, lines []string) ([]string, error) {
	for i, l := range lines {
		if strings.HasPrefix(l, typePrefix) {
			return lines[i:], nil
		}
	}
	return nil, NewQueryError(query, lines, errors.New("no type in output"))
}
