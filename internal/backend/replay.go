package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Session is a recorded set of backend answers.
//
//	whatis:
//	  my_size_t: "type = unsigned long"
//	ptype:
//	  struct foo: |
//	    type = struct foo {
//	        int a;
//	    }
type Session struct {
	Whatis  map[string]string `yaml:"whatis,omitempty" json:"whatis,omitempty"`
	Ptype   map[string]string `yaml:"ptype,omitempty" json:"ptype,omitempty"`
	Modules []string          `yaml:"modules,omitempty" json:"modules,omitempty"`
}

func NewSession() *Session {
	return &Session{
		Whatis: make(map[string]string),
		Ptype:  make(map[string]string),
	}
}

// LoadSession reads a session file.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "read session"),
			"record one with --record-file while running against gdb")
	}

	s := NewSession()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "unmarshal session %s", path)
	}
	if s.Whatis == nil {
		s.Whatis = make(map[string]string)
	}
	if s.Ptype == nil {
		s.Ptype = make(map[string]string)
	}
	return s, nil
}

// Save writes the session to path, creating parent directories as needed.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create session directory")
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write session")
	}

	return nil
}

// Replay answers queries from a Session.
type Replay struct {
	session *Session
}

func NewReplay(s *Session) *Replay {
	if s == nil {
		s = NewSession()
	}
	return &Replay{session: s}
}

// OpenReplay loads a session file and replays it.
func OpenReplay(path string) (*Replay, error) {
	s, err := LoadSession(path)
	if err != nil {
		return nil, err
	}
	return NewReplay(s), nil
}

func (r *Replay) Whatis(_ context.Context, name string) (string, error) {
	v, ok := r.session.Whatis[name]
	if !ok {
		return "", unknownSymbol(whatisCommand(name), name)
	}
	return strings.TrimSpace(v), nil
}

func (r *Replay) Ptype(_ context.Context, name string) ([]string, error) {
	v, ok := r.session.Ptype[name]
	if !ok {
		return nil, unknownSymbol(ptypeCommand(name), name)
	}
	return TrimBlank(strings.Split(v, "\n")), nil
}

// LoadModules succeeds when the session recorded every requested module.
func (r *Replay) LoadModules(_ context.Context, names []string) error {
	recorded := make(map[string]bool, len(r.session.Modules))
	for _, m := range r.session.Modules {
		recorded[m] = true
	}
	for _, n := range names {
		if !recorded[n] {
			return NewQueryError("mod -s "+n, nil, errors.Newf("module %s not recorded in session", n))
		}
	}
	return nil
}

func (r *Replay) RemoveModules(context.Context, []string) error {
	return nil
}

func unknownSymbol(command, name string) error {
	return NewQueryError(command, []string{fmt.Sprintf("No symbol %q in current context.", name)}, nil)
}

// Recorder forwards queries to another Backend and records every answer.
type Recorder struct {
	next    Backend
	session *Session
}

func NewRecorder(next Backend) *Recorder {
	return &Recorder{next: next, session: NewSession()}
}

func (r *Recorder) Session() *Session {
	return r.session
}

func (r *Recorder) Whatis(ctx context.Context, name string) (string, error) {
	v, err := r.next.Whatis(ctx, name)
	if err != nil {
		return "", err
	}
	r.session.Whatis[name] = v
	return v, nil
}

func (r *Recorder) Ptype(ctx context.Context, name string) ([]string, error) {
	lines, err := r.next.Ptype(ctx, name)
	if err != nil {
		return nil, err
	}
	r.session.Ptype[name] = strings.Join(lines, "\n") + "\n"
	return lines, nil
}

func (r *Recorder) LoadModules(ctx context.Context, names []string) error {
	ml, ok := r.next.(ModuleLoader)
	if !ok {
		return ErrModulesUnsupported
	}
	if err := ml.LoadModules(ctx, names); err != nil {
		return err
	}
	r.session.Modules = append(r.session.Modules, names...)
	return nil
}

func (r *Recorder) RemoveModules(ctx context.Context, names []string) error {
	if ml, ok := r.next.(ModuleLoader); ok {
		return ml.RemoveModules(ctx, names)
	}
	return ErrModulesUnsupported
}
