package feed

import (
	"sort"
	"strings"
)

// Section is one configured calendar feed: the canonical name used for the
// cache file and download filename, and the portal path suffix it is fetched
// from. Sections are loaded once at startup and never change afterwards.
type Section struct {
	Name   string
	Suffix string
}

// Registry resolves request section names case-insensitively against the
// configured sections.
type Registry struct {
	byKey map[string]Section
	names []string
}

func NewRegistry(sections map[string]string) *Registry {
	r := &Registry{byKey: make(map[string]Section, len(sections))}
	for name, suffix := range sections {
		r.byKey[strings.ToLower(name)] = Section{Name: name, Suffix: suffix}
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Resolve returns the section for name, matching case-insensitively.
func (r *Registry) Resolve(name string) (Section, bool) {
	section, ok := r.byKey[strings.ToLower(name)]
	return section, ok
}

// Names returns the canonical section names, sorted.
func (r *Registry) Names() []string {
	return r.names
}

// All returns every configured section in name order.
func (r *Registry) All() []Section {
	sections := make([]Section, 0, len(r.names))
	for _, name := range r.names {
		sections = append(sections, r.byKey[strings.ToLower(name)])
	}
	return sections
}
