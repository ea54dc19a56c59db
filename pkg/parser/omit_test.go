package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTypeName(t *testing.T) {
	tests := map[string]string{
		"struct foo":                "struct foo",
		"  const struct foo *":      "struct foo",
		"volatile unsigned long[4]": "unsigned long",
		"my_size_t;":                "my_size_t",
		"struct   list_head**":      "struct list_head",
		"*":                         "",
		"":                          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeTypeName(in), in)
	}
}

func TestExcludeSet(t *testing.T) {
	s := NewExcludeSet("struct foo", "const my_t *", "", "  ")
	assert.True(t, s.Contains("struct foo"))
	assert.True(t, s.Contains("struct  foo *"))
	assert.True(t, s.Contains("my_t"))
	assert.False(t, s.Contains("struct bar"))
	assert.Len(t, s, 2)

	var empty ExcludeSet
	assert.False(t, empty.Contains("struct foo"))
}
