package parser

import (
	"fmt"
	"strings"

	"github.com/zhengyp36/crash-ext-tools/internal/model"
)

const noDataFields = "<no data fields>"

var typeTable = map[string]model.Kind{
	"void":     model.KindBase,
	"signed":   model.KindBase,
	"unsigned": model.KindBase,
	"char":     model.KindBase,
	"short":    model.KindBase,
	"int":      model.KindBase,
	"long":     model.KindBase,
	"float":    model.KindBase,
	"double":   model.KindBase,
	"_Bool":    model.KindBase,

	"int8_t":    model.KindBuiltin,
	"int16_t":   model.KindBuiltin,
	"int32_t":   model.KindBuiltin,
	"int64_t":   model.KindBuiltin,
	"uint8_t":   model.KindBuiltin,
	"uint16_t":  model.KindBuiltin,
	"uint32_t":  model.KindBuiltin,
	"uint64_t":  model.KindBuiltin,
	"intptr_t":  model.KindBuiltin,
	"uintptr_t": model.KindBuiltin,
	"size_t":    model.KindBuiltin,
	"ssize_t":   model.KindBuiltin,

	"struct": model.KindStruct,
	"union":  model.KindUnion,
	"enum":   model.KindEnum,
}

var qualifiers = map[string]struct{}{
	"const":    {},
	"volatile": {},
	"register": {},
}

// Parse builds a descriptor from declaration text.
//
// lines is either a single declaration line or a multi-line struct/union
// body as printed by ptype. hasVarName tells whether a single plain line ends
// in a variable name that must be dropped; mode is the requested mode when
// the text itself carries no '*'.
func Parse(lines []string, hasVarName bool, mode model.Mode) (model.Descriptor, error) {
	switch {
	case len(lines) == 0:
		return model.Descriptor{}, grammarErrorf("", "empty declaration")
	case len(lines) > 1:
		return parseAggregate(lines)
	case strings.Contains(lines[0], "{"):
		return parseEnumLiteral(lines[0])
	case strings.Contains(lines[0], "("):
		return parseFunction(lines[0], hasVarName)
	default:
		return parsePlain(lines[0], hasVarName, mode)
	}
}

func parsePlain(line string, hasVarName bool, mode model.Mode) (model.Descriptor, error) {
	text := line
	if i := strings.Index(text, ";"); i >= 0 {
		text = text[:i]
	}
	if hasVarName {
		// bitfield width
		if i := strings.Index(text, ":"); i >= 0 {
			text = text[:i]
		}
	}

	d := model.Descriptor{Mode: mode}
	if strings.Contains(text, "*") {
		d.Mode = model.ModeWeak
	}

	var array string
	if i := strings.Index(text, "["); i >= 0 {
		text, array = text[:i], strings.TrimSpace(text[i:])
	}

	words := strings.Fields(text)
	if hasVarName && len(words) > 0 {
		last := words[len(words)-1]
		if i := strings.LastIndex(last, "*"); i >= 0 {
			words[len(words)-1] = last[:i+1]
		} else {
			words = words[:len(words)-1]
		}
	}
	if len(words) == 0 {
		return model.Descriptor{}, grammarErrorf(line, "missing type name")
	}

	decl := strings.Join(words, " ")
	sep := " "
	if strings.HasSuffix(decl, "*") {
		sep = ""
	}
	d.Template = []string{decl + sep + model.Placeholder + array}

	names := bareWords(decl)
	if len(names) == 0 {
		return model.Descriptor{}, grammarErrorf(line, "missing type name")
	}
	d.Name = strings.Join(names, " ")

	kind, err := classify(names, line)
	if err != nil {
		return model.Descriptor{}, err
	}
	d.Kind = kind
	if kind == model.KindEnum {
		d.Mode = model.ModeStrong
	}
	return d, nil
}

// bareWords returns the words of a declaration without stars or qualifiers.
func bareWords(decl string) []string {
	fields := strings.Fields(strings.ReplaceAll(decl, "*", " "))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := qualifiers[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

func classify(words []string, line string) (model.Kind, error) {
	kind, known := typeTable[words[0]]
	switch {
	case known && kind.IsAggregate(), known && kind == model.KindEnum:
		if len(words) != 2 {
			return model.KindInvalid, grammarErrorf(line, "%s needs exactly one tag", words[0])
		}
		return kind, nil
	case known && kind == model.KindBuiltin:
		if len(words) != 1 {
			return model.KindInvalid, grammarErrorf(line, "unexpected words after %s", words[0])
		}
		return kind, nil
	case known:
		for _, w := range words[1:] {
			if typeTable[w] != model.KindBase {
				return model.KindInvalid, grammarErrorf(line, "unexpected word %q in base type", w)
			}
		}
		return kind, nil
	case len(words) == 1:
		return model.KindAlias, nil
	default:
		return model.KindInvalid, grammarErrorf(line, "unexpected token count %d", len(words))
	}
}

// signature is a split function declaration:
//
//	ret (stars name array)(args)
type signature struct {
	ret        string
	declarator bool
	stars      string
	name       string
	array      string
	args       []Node
}

func splitSignature(line string, hasVarName bool) (signature, error) {
	text := line
	if i := strings.Index(text, ";"); i >= 0 {
		text = text[:i]
	}
	nodes, err := Split(text)
	if err != nil {
		return signature{}, err
	}
	nodes = compact(nodes)

	var sig signature
	switch {
	case len(nodes) == 2 && !nodes[0].IsGroup && nodes[1].IsGroup:
		sig.ret, sig.args = nodes[0].Text, nodes[1].Group
	case len(nodes) == 3 && !nodes[0].IsGroup && nodes[1].IsGroup && nodes[2].IsGroup:
		sig.ret, sig.args = nodes[0].Text, nodes[2].Group
		sig.declarator = true

		mid := nodes[1].Group
		if len(mid) != 1 || mid[0].IsGroup {
			return signature{}, grammarErrorf(line, "unsupported function declarator")
		}
		inner := strings.TrimSpace(mid[0].Text)
		i := strings.LastIndex(inner, "*")
		if !strings.HasPrefix(inner, "*") {
			return signature{}, grammarErrorf(line, "function declarator without '*'")
		}
		sig.stars, inner = inner[:i+1], strings.TrimSpace(inner[i+1:])
		sig.name = inner
		if j := strings.Index(inner, "["); j >= 0 {
			sig.name, sig.array = strings.TrimSpace(inner[:j]), inner[j:]
		}
		if strings.Contains(sig.stars, " ") {
			sig.stars = strings.ReplaceAll(sig.stars, " ", "")
		}
	default:
		return signature{}, grammarErrorf(line, "unexpected function shape")
	}

	sig.ret = strings.TrimSpace(sig.ret)
	if sig.ret == "" {
		return signature{}, grammarErrorf(line, "missing return type")
	}
	if hasVarName && sig.name == "" {
		return signature{}, grammarErrorf(line, "missing member name")
	}
	return sig, nil
}

func (s signature) template() string {
	if !s.declarator {
		return fmt.Sprintf("%s %s(%s)", s.ret, model.Placeholder, Join(s.args))
	}
	return fmt.Sprintf("%s (%s%s%s)(%s)", s.ret, s.stars, model.Placeholder, s.array, Join(s.args))
}

// deps parses every argument and the return type as a dependency.
func (s signature) deps(line string) (model.Deps, error) {
	var deps model.Deps
	for _, arg := range append(Unpack(s.args, true), s.ret) {
		d, err := parsePlain(arg, false, model.ModeStrong)
		if err != nil {
			return model.Deps{}, grammarErrorf(line, "argument %q: %v", arg, err)
		}
		deps.Add(d)
	}
	return deps, nil
}

func parseFunction(line string, hasVarName bool) (model.Descriptor, error) {
	sig, err := splitSignature(line, hasVarName)
	if err != nil {
		return model.Descriptor{}, err
	}
	deps, err := sig.deps(line)
	if err != nil {
		return model.Descriptor{}, err
	}

	d := model.Descriptor{
		Kind:     model.KindFunction,
		Mode:     model.ModeStrong,
		Template: []string{sig.template()},
		Deps:     deps,
	}
	if !hasVarName {
		d.Name = sig.name
	}
	return d, nil
}

func parseEnumLiteral(line string) (model.Descriptor, error) {
	text := strings.TrimSpace(line)
	open, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if strings.Count(text, "{") != 1 || strings.Count(text, "}") != 1 || end < open {
		return model.Descriptor{}, grammarErrorf(line, "unbalanced enum body")
	}

	head := bareWords(text[:open])
	if len(head) == 0 || head[0] != "enum" || len(head) > 2 {
		return model.Descriptor{}, grammarErrorf(line, "not an enum literal")
	}
	if len(enumMembers(text)) == 0 {
		return model.Descriptor{}, invariantErrorf("enum body with no members: %q", line)
	}

	tmpl, err := combiDecl(text, false)
	if err != nil {
		return model.Descriptor{}, err
	}

	d := model.Descriptor{
		Kind:     model.KindEnum,
		Mode:     model.ModeStrong,
		Template: []string{tmpl},
	}
	if len(head) == 2 {
		d.Name = strings.Join(head, " ")
	}
	return d, nil
}

func enumMembers(line string) []string {
	open, end := strings.Index(line, "{"), strings.LastIndex(line, "}")
	if open < 0 || end < open {
		return nil
	}
	var out []string
	for _, m := range strings.Split(line[open+1:end], ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// combiDecl turns the closing line of a body ("} *var[2];") into a template
// line with the declarator replaced by the placeholder.
func combiDecl(line string, hasVarName bool) (string, error) {
	text := line
	if i := strings.Index(text, ";"); i >= 0 {
		text = text[:i]
	}
	end := strings.LastIndex(text, "}")
	if end < 0 {
		return "", grammarErrorf(line, "missing '}'")
	}

	head, tail := text[:end+1], strings.TrimSpace(text[end+1:])
	var stars string
	for strings.HasPrefix(tail, "*") {
		stars += "*"
		tail = strings.TrimSpace(tail[1:])
	}
	name, array := tail, ""
	if i := strings.Index(tail, "["); i >= 0 {
		name, array = strings.TrimSpace(tail[:i]), tail[i:]
	}
	if hasVarName != (name != "") {
		return "", grammarErrorf(line, "unexpected declarator %q", tail)
	}
	return head + " " + stars + model.Placeholder + array, nil
}

func parseAggregate(lines []string) (model.Descriptor, error) {
	first, last := lines[0], lines[len(lines)-1]
	if strings.Count(first, "{") != 1 || strings.Count(last, "}") != 1 {
		return model.Descriptor{}, withBody(grammarErrorf(first, "malformed aggregate body"), lines)
	}

	head := bareWords(first[:strings.Index(first, "{")])
	if len(head) == 0 || len(head) > 2 || !typeTable[head[0]].IsAggregate() {
		return model.Descriptor{}, withBody(grammarErrorf(first, "not a struct or union"), lines)
	}

	closing, err := combiDecl(last, false)
	if err != nil {
		return model.Descriptor{}, withBody(err, lines)
	}

	d := model.Descriptor{
		Kind:     typeTable[head[0]],
		Mode:     model.ModeStrong,
		Template: append(append(make([]string, 0, len(lines)), lines[:len(lines)-1]...), closing),
	}
	if len(head) == 2 {
		d.Name = strings.Join(head, " ")
	}

	for _, line := range lines[1 : len(lines)-1] {
		member := strings.TrimSpace(line)
		switch {
		case member == "", member == noDataFields:
			continue
		case strings.ContainsAny(member, "{}"):
			// nested anonymous body; its members are scanned as ours
			continue
		case strings.Contains(member, "("):
			fn, err := parseFunction(member, true)
			if err != nil {
				return model.Descriptor{}, withBody(err, lines)
			}
			d.Deps.Merge(fn.Deps)
		default:
			if !strings.HasSuffix(member, ";") {
				return model.Descriptor{}, withBody(grammarErrorf(line, "member without ';'"), lines)
			}
			dep, err := parsePlain(member, true, model.ModeStrong)
			if err != nil {
				return model.Descriptor{}, withBody(err, lines)
			}
			d.Deps.Add(dep)
		}
	}
	return d, nil
}
