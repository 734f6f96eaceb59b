package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var builtin embed.FS

// Default catalog documents, in lookup order.
var defaultDocuments = []string{
	"data/functional.yaml",
	"data/auxiliary.yaml",
	"data/activation.yaml",
}

// Entry is a single template entry of a catalog document.
type Entry struct {
	Inputs      int               `yaml:"inputs"`
	Formul      string            `yaml:"formul"`
	Diff        string            `yaml:"diff"`
	Symbol      string            `yaml:"symbol"`
	Kind        *Kind             `yaml:"kind"`
	Declaration map[string]string `yaml:"declaration"`
}

// Document is one catalog: a default symbol and kind plus its entries.
type Document struct {
	Name    string           `yaml:"-"`
	Symbol  string           `yaml:"symbol"`
	NType   Kind             `yaml:"n_type"`
	Entries map[string]Entry `yaml:"entries"`

	forward  map[string]Skeleton
	backward map[string]Skeleton
}

// Match is the result of a successful library lookup.
type Match struct {
	Key      string
	Symbol   string
	Kind     Kind
	Entry    Entry
	Forward  Skeleton
	Backward Skeleton
}

// Library is an ordered set of catalog documents. It is immutable once
// loaded and safe for concurrent use.
type Library struct {
	docs []*Document
}

// ParseDocument decodes a single YAML catalog document.
func ParseDocument(name string, data []byte) (*Document, error) {
	doc := &Document{Name: name}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, name, err)
	}
	doc.forward = make(map[string]Skeleton, len(doc.Entries))
	doc.backward = make(map[string]Skeleton, len(doc.Entries))
	for key, e := range doc.Entries {
		doc.forward[key] = ParseSkeleton(e.Formul)
		if e.Diff != "" {
			doc.backward[key] = ParseSkeleton(e.Diff)
		}
	}
	return doc, nil
}

// NewLibrary builds a library from already decoded documents. Documents are
// searched in the order given.
func NewLibrary(docs ...*Document) *Library {
	return &Library{docs: docs}
}

// LoadLibrary reads the named YAML documents from fsys.
func LoadLibrary(fsys fs.FS, names ...string) (*Library, error) {
	docs := make([]*Document, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", name, err)
		}
		doc, err := ParseDocument(name, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return NewLibrary(docs...), nil
}

// DefaultLibrary loads the embedded functional, auxiliary and activation
// catalogs.
func DefaultLibrary() (*Library, error) {
	return LoadLibrary(builtin, defaultDocuments...)
}

// MustDefaultLibrary is like DefaultLibrary but panics on error.
func MustDefaultLibrary() *Library {
	lib, err := DefaultLibrary()
	if err != nil {
		panic(err)
	}
	return lib
}

// Lookup finds key in the library. The first document that contains the
// key wins. The returned symbol is the entry's own symbol if set, else the
// document default; the kind follows the same rule.
func (l *Library) Lookup(key string) (Match, bool) {
	for _, doc := range l.docs {
		e, ok := doc.Entries[key]
		if !ok {
			continue
		}
		m := Match{
			Key:      key,
			Symbol:   doc.Symbol,
			Kind:     doc.NType,
			Entry:    e,
			Forward:  doc.forward[key],
			Backward: doc.backward[key],
		}
		if e.Symbol != "" {
			m.Symbol = e.Symbol
		}
		if e.Kind != nil {
			m.Kind = *e.Kind
		}
		return m, true
	}
	return Match{}, false
}

// Skeleton returns the parsed forward skeleton of key.
func (l *Library) Skeleton(key string) (Skeleton, bool) {
	m, ok := l.Lookup(key)
	if !ok {
		return Skeleton{}, false
	}
	return m.Forward, true
}

// DiffSkeleton returns the parsed backward skeleton of key. It reports false
// when the key is absent or the entry has no diff template.
func (l *Library) DiffSkeleton(key string) (Skeleton, bool) {
	m, ok := l.Lookup(key)
	if !ok || m.Entry.Diff == "" {
		return Skeleton{}, false
	}
	return m.Backward, true
}

// Require checks that every key is present.
func (l *Library) Require(keys ...string) error {
	for _, key := range keys {
		if _, ok := l.Lookup(key); !ok {
			return fmt.Errorf("%w: %s", ErrTemplateMissing, key)
		}
	}
	return nil
}

// Keys returns every key known to the library, sorted.
func (l *Library) Keys() []string {
	seen := make(map[string]struct{})
	for _, doc := range l.docs {
		for key := range doc.Entries {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Documents returns the loaded documents in lookup order.
func (l *Library) Documents() []*Document {
	return l.docs
}
