package parser

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/zhengyp36/crash-ext-tools/internal/backend"
)

const typePrefix = "type = "

// whatis returns the one-line answer of `whatis name` without its
// "type = " prefix.
func (r *Resolver) whatis(ctx context.Context, name string) (string, error) {
	r.queries++
	v, err := r.backend.Whatis(ctx, name)
	if err != nil {
		return "", errors.Wrapf(err, "whatis %s", name)
	}
	text := stripTypePrefix(v)
	if text == "" {
		return "", backend.NewQueryError("whatis "+name, []string{v}, errors.New("empty answer"))
	}
	return text, nil
}

// ptype returns the answer of `ptype name`, "type = " prefix removed from
// the first line and surrounding blank lines dropped.
func (r *Resolver) ptype(ctx context.Context, name string) ([]string, error) {
	r.queries++
	lines, err := r.backend.Ptype(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "ptype %s", name)
	}
	lines = backend.TrimBlank(lines)
	if len(lines) == 0 {
		return nil, backend.NewQueryError("ptype "+name, nil, errors.New("empty answer"))
	}

	out := append([]string(nil), lines...)
	out[0] = stripTypePrefix(out[0])
	for i := 1; i < len(out); i++ {
		out[i] = strings.TrimRight(out[i], " \t\r")
	}
	return out, nil
}

func stripTypePrefix(s string) string {
	if i := strings.Index(s, typePrefix); i >= 0 {
		s = s[i+len(typePrefix):]
	}
	return strings.TrimSpace(s)
}
