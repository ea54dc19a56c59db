package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Node
	}{
		{
			name: "function pointer",
			in:   "int (*cb[2])(char *, int)",
			want: []Node{
				{Text: "int "},
				{IsGroup: true, Group: []Node{{Text: "*cb[2]"}}},
				{IsGroup: true, Group: []Node{{Text: "char *, int"}}},
			},
		},
		{
			name: "nested",
			in:   "void (*)(void (*)(int), long)",
			want: []Node{
				{Text: "void "},
				{IsGroup: true, Group: []Node{{Text: "*"}}},
				{IsGroup: true, Group: []Node{
					{Text: "void "},
					{IsGroup: true, Group: []Node{{Text: "*"}}},
					{IsGroup: true, Group: []Node{{Text: "int"}}},
					{Text: ", long"},
				}},
			},
		},
		{
			name: "empty group",
			in:   "f()",
			want: []Node{{Text: "f"}, {IsGroup: true}},
		},
		{
			name: "no groups",
			in:   "unsigned long",
			want: []Node{{Text: "unsigned long"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split() mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.in, Join(got))
		})
	}
}

func TestSplitJoinRoundTrip(t *testing.T) {
	for _, s := range []string{
		"",
		"()",
		"((()))",
		"a(b(c)d)e",
		"int (**)(struct node *, uint32_t)",
		"  void ( * handler ) ( int , ... )  ",
	} {
		nodes, err := Split(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, Join(nodes))
	}
}

func TestSplitUnbalanced(t *testing.T) {
	for _, s := range []string{"int (*cb(int)", "int )(", "(", ")"} {
		_, err := Split(s)
		require.Error(t, err, s)
		assert.ErrorIs(t, err, ErrGrammar, s)
	}
}

func TestUnpack(t *testing.T) {
	nodes, err := Split("int (*)(char *, const struct foo *, ...)")
	require.NoError(t, err)

	assert.Equal(t, []string{"int", "*", "char *", "const struct foo *", "..."}, Unpack(nodes, false))
	assert.Equal(t, []string{"int", "char *", "const struct foo *"}, Unpack(nodes, true))

	args, err := Split("void (*)(int), long, [4]")
	require.NoError(t, err)
	assert.Equal(t, []string{"void", "int", "long"}, Unpack(args, true))
}
