package parser

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/zhengyp36/crash-ext-tools/internal/model"
)

const noDataFieldsDecl = "char __no_data_fields[1];"

// EmitConfig names the macros wrapped around the generated header.
type EmitConfig struct {
	GuardPrefix string // per-declaration guards, e.g. CRASH_HEAD_
	FilePrefix  string // file-level guard, e.g. _CRASH_AUTO_HEAD_
}

// FileMacro derives the file-level include guard from the output file name.
func (c EmitConfig) FileMacro(outFile string) string {
	return c.FilePrefix + macroName(filepath.Base(outFile)) + "_"
}

// GuardMacro derives the include guard of one registry tag.
func (c EmitConfig) GuardMacro(tag string) string {
	return c.GuardPrefix + macroName(tag)
}

func (c EmitConfig) builtinMacro() string {
	return c.GuardPrefix + "BUILTIN_INCLUDED"
}

func macroName(s string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, s)
}

// codeMap is an ordered set of named code blocks.
type codeMap struct {
	names  []string
	blocks map[string][]string
}

func (m *codeMap) add(name string, lines ...string) error {
	if m.blocks == nil {
		m.blocks = make(map[string][]string)
	}
	if _, ok := m.blocks[name]; ok {
		return invariantErrorf("code block %s emitted twice", name)
	}
	m.names = append(m.names, name)
	m.blocks[name] = lines
	return nil
}

// lines flattens the blocks, each followed by an empty line.
func (m *codeMap) lines() []string {
	var out []string
	for _, n := range m.names {
		out = append(out, m.blocks[n]...)
		out = append(out, "")
	}
	return out
}

// Emit renders the registry as the lines of a guarded C header. Base,
// builtin and excluded entries produce no block. Every other entry gets its
// own guard; a declaration whose text is identical to one already emitted
// for the same name keeps the guard with an empty body.
func Emit(reg *Registry, cfg EmitConfig, outFile string) ([]string, error) {
	var code codeMap
	macro := cfg.FileMacro(outFile)

	if err := code.add("<file-head>",
		"#ifndef "+macro,
		"#define "+macro,
	); err != nil {
		return nil, err
	}

	if reg.HasBuiltin() {
		bm := cfg.builtinMacro()
		if err := code.add(model.TagBuiltin,
			"#ifndef "+bm,
			"#define "+bm,
			"#include <stddef.h>",
			"#include <stdint.h>",
			"#endif // "+bm,
		); err != nil {
			return nil, err
		}
	}

	if err := code.add("<cplusplus-head>",
		"#ifdef __cplusplus",
		`extern "C" {`,
		"#endif",
	); err != nil {
		return nil, err
	}

	emitted := make(map[string][][]string)
	for _, d := range reg.Entries() {
		if d.IsSentinel() {
			continue
		}
		if len(d.Text) == 0 {
			return nil, invariantErrorf("%s registered without text", d.Tag())
		}
		duplicate := slices.ContainsFunc(emitted[d.Name], func(prev []string) bool {
			return slices.Equal(prev, d.Text)
		})
		if !duplicate {
			emitted[d.Name] = append(emitted[d.Name], d.Text)
		}

		tag := d.Tag()
		guard := cfg.GuardMacro(tag)
		block := make([]string, 0, len(d.Text)+4)
		block = append(block, "/* "+tag+" */", "#ifndef "+guard, "#define "+guard)
		for _, line := range d.Text {
			if duplicate {
				break
			}
			block = append(block, strings.ReplaceAll(line, noDataFields, noDataFieldsDecl))
		}
		block = append(block, "#endif // "+guard)
		if err := code.add(tag, block...); err != nil {
			return nil, err
		}
	}

	if err := code.add("<cplusplus-tail>",
		"#ifdef __cplusplus",
		`} // extern "C"`,
		"#endif",
	); err != nil {
		return nil, err
	}

	if err := code.add("<file-tail>", "#endif // "+macro); err != nil {
		return nil, err
	}

	return code.lines(), nil
}

// Render joins emitted lines into file content.
func Render(lines []string) string {
	return strings.Join(lines, "\n")
}
