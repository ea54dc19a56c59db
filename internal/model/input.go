package model

// Root is one type line of a .in file.
type Root struct {
	Line   int    // 1-based line number in the source file
	Text   string // declaration text without its +/- prefix
	Skip   bool   // "-" prefix: resolve as an opaque placeholder only
	Source string // original line, for diagnostics
}

type ModuleOp int

const (
	ModuleLoad ModuleOp = iota
	ModuleRemove
)

func (o ModuleOp) String() string {
	if o == ModuleRemove {
		return "remove"
	}
	return "load"
}

// ModuleDirective is a "# module: a, b" request found in a .in file.
type ModuleDirective struct {
	Line  int
	Op    ModuleOp
	Names []string
}

// Input is a parsed .in file.
type Input struct {
	Path    string
	Roots   []Root
	Modules []ModuleDirective
}

// Skips returns the roots marked with "-", in file order.
func (in *Input) Skips() []Root {
	out := make([]Root, 0)
	for _, r := range in.Roots {
		if r.Skip {
			out = append(out, r)
		}
	}
	return out
}
