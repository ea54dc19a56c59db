package parser

import (
	"github.com/zhengyp36/crash-ext-tools/internal/model"
)

// Registry holds resolved descriptors in resolution order, keyed by tag.
// Dependencies always precede the descriptors that use them.
type Registry struct {
	entries []model.Descriptor
	index   map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Insert appends d under its tag. A tag is inserted at most once.
func (r *Registry) Insert(d model.Descriptor) error {
	tag := d.Tag()
	if _, ok := r.index[tag]; ok {
		return invariantErrorf("duplicate registration of %s", tag)
	}
	r.index[tag] = len(r.entries)
	r.entries = append(r.entries, d)
	return nil
}

func (r *Registry) Lookup(tag string) (model.Descriptor, bool) {
	i, ok := r.index[tag]
	if !ok {
		return model.Descriptor{}, false
	}
	return r.entries[i], true
}

// Satisfied returns the registered descriptor that already covers a request
// for d: its strong form, or its weak form when only a weak use is asked for.
func (r *Registry) Satisfied(d model.Descriptor) (model.Descriptor, bool) {
	if prev, ok := r.Lookup(model.TagOf(d.Kind, d.Name, model.ModeStrong)); ok {
		return prev, true
	}
	if d.Mode == model.ModeWeak {
		return r.Lookup(model.TagOf(d.Kind, d.Name, model.ModeWeak))
	}
	return model.Descriptor{}, false
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns the descriptors in resolution order.
func (r *Registry) Entries() []model.Descriptor {
	return append([]model.Descriptor(nil), r.entries...)
}

// Tags returns the registered tags in resolution order.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.entries))
	for i, d := range r.entries {
		out[i] = d.Tag()
	}
	return out
}

// HasBuiltin reports whether a fixed-width builtin type was registered.
func (r *Registry) HasBuiltin() bool {
	_, ok := r.index[model.TagBuiltin]
	return ok
}
