// Package backend answers whatis/ptype type queries for the header generator.
//
// A Backend is usually a gdb process attached to a kernel image, a recorded
// session of one (Replay), or a wrapper around another Backend (Cached,
// Recorder). Every answer keeps gdb's "type = " prefix on its first line.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Backend is the introspection service queried by the resolver.
type Backend interface {
	// Whatis returns the single line printed by `whatis <name>`.
	Whatis(ctx context.Context, name string) (string, error)
	// Ptype returns the lines printed by `ptype <name>`.
	Ptype(ctx context.Context, name string) ([]string, error)
}

// ModuleLoader is implemented by backends able to load or drop kernel
// module debug information before types are queried.
type ModuleLoader interface {
	LoadModules(ctx context.Context, names []string) error
	RemoveModules(ctx context.Context, names []string) error
}

var (
	// ErrQuery marks every failed backend query.
	ErrQuery = errors.New("backend query failed")
	// ErrModulesUnsupported is returned by wrappers whose backend is not a
	// ModuleLoader.
	ErrModulesUnsupported = errors.New("backend cannot load modules")
)

// QueryError carries the failing command and the raw backend output.
type QueryError struct {
	Command string
	Output  []string
	Err     error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("run {%s}", e.Command)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError builds a QueryError marked with ErrQuery and annotated with
// the backend output.
func NewQueryError(command string, output []string, cause error) error {
	var err error = &QueryError{Command: command, Output: output, Err: cause}
	err = errors.Mark(errors.WithStack(err), ErrQuery)
	if len(output) > 0 {
		err = errors.WithDetailf(err, "backend output:\n\t%s", strings.Join(output, "\n\t"))
	}
	return err
}

// TrimBlank drops leading and trailing empty lines.
func TrimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func whatisCommand(name string) string { return "whatis " + name }
func ptypeCommand(name string) string  { return "ptype " + name }
