package parser

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/zhengyp36/crash-ext-tools/internal/model"
)

var (
	moduleLine = regexp.MustCompile(`^([+-]?)\s*module\s*:\s*(.*)$`)
	rootLine   = regexp.MustCompile(`^([+-]?)\s*(.*)$`)
)

// ReadInput parses a .in file.
func ReadInput(path string) (*model.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	defer f.Close()

	return ParseInput(path, f)
}

// ParseInput reads type lines and module directives:
//
//	# module: ext2, ext4     load debug info before the next types
//	# -module: ext2          drop it again
//	struct inode            resolve and emit
//	-struct super_block     never expand, emit nothing for it
//
// Other '#' lines and blank lines are ignored.
func ParseInput(path string, r io.Reader) (*model.Input, error) {
	in := &model.Input{Path: path}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			m := moduleLine.FindStringSubmatch(strings.TrimSpace(line[1:]))
			if m == nil {
				continue
			}
			names := strings.Fields(strings.ReplaceAll(m[2], ",", " "))
			if len(names) == 0 {
				return nil, errors.WithHintf(
					grammarErrorf(raw, "%s:%d: module directive without names", path, n),
					"list module names after the colon, e.g. # module: ext4")
			}
			op := model.ModuleLoad
			if m[1] == "-" {
				op = model.ModuleRemove
			}
			in.Modules = append(in.Modules, model.ModuleDirective{Line: n, Op: op, Names: names})
			continue
		}

		m := rootLine.FindStringSubmatch(line)
		text := strings.TrimSpace(m[2])
		if text == "" {
			return nil, grammarErrorf(raw, "%s:%d: missing type after %q", path, n, m[1])
		}
		in.Roots = append(in.Roots, model.Root{
			Line:   n,
			Text:   text,
			Skip:   m[1] == "-",
			Source: raw,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return in, nil
}
