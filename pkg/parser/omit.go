package parser

import (
	"strings"
)

var qualifiers = map[string]struct{}{
	"const":    {},
	"volatile": {},
	"register": {},
}

// ExcludeSet holds type names that must never be expanded.
type ExcludeSet map[string]struct{}

// NewExcludeSet builds an ExcludeSet from raw names; qualifiers, pointer
// stars, array suffixes and a trailing ';' are ignored.
func NewExcludeSet(names ...string) ExcludeSet {
	s := make(ExcludeSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s ExcludeSet) Add(name string) {
	if n := normalizeTypeName(name); n != "" {
		s[n] = struct{}{}
	}
}

// Contains reports whether name, after normalization, is excluded.
func (s ExcludeSet) Contains(name string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[normalizeTypeName(name)]
	return ok
}

// normalizeTypeName reduces "const struct foo *[2];" style text to the bare
// type name "struct foo".
func normalizeTypeName(name string) string {
	if i := strings.Index(name, ";"); i >= 0 {
		name = name[:i]
	}
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, "*", " ")

	parts := make([]string, 0, 4)
	for _, f := range strings.Fields(name) {
		if _, ok := qualifiers[f]; ok {
			continue
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}
