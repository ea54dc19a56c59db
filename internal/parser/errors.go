package parser

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/zhengyp36/crash-ext-tools/internal/backend"
)

var (
	// ErrGrammar marks declaration text the parser cannot interpret.
	ErrGrammar = errors.New("grammar violation")
	// ErrInvariant marks a resolver bug or an unsupported input shape.
	ErrInvariant = errors.New("invariant violation")
	// ErrBackend marks a failed whatis/ptype query.
	ErrBackend = backend.ErrQuery
)

func grammarErrorf(text string, format string, args ...any) error {
	err := errors.Newf("%s: %q", fmt.Sprintf(format, args...), text)
	return errors.Mark(err, ErrGrammar)
}

func invariantErrorf(format string, args ...any) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrInvariant)
}

// withBody attaches a multi-line declaration body to err.
func withBody(err error, lines []string) error {
	return errors.WithDetailf(err, "declaration:\n\t%s", strings.Join(lines, "\n\t"))
}
