package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var defaultTable []byte

// ErrInvalidCatalog is returned when a model table cannot be parsed or fails validation.
var ErrInvalidCatalog = errors.New("catalog: model table is malformed")

// Model is one entry of the model table.
type Model struct {
	ID              string `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	SupportsCaching bool   `yaml:"supports_caching" json:"-"`
	Hidden          bool   `yaml:"hidden" json:"-"`
}

type fileTable struct {
	Models []Model `yaml:"models"`
}

// Catalog is an immutable model table. Safe for concurrent use.
type Catalog struct {
	models []Model
	byID   map[string]Model
}

// Parse parses a YAML model table.
func Parse(data []byte) (*Catalog, error) {
	var t fileTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if len(t.Models) == 0 {
		return nil, fmt.Errorf("%w: no models", ErrInvalidCatalog)
	}
	c := &Catalog{byID: make(map[string]Model, len(t.Models))}
	for i, m := range t.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("%w: model %d: missing id", ErrInvalidCatalog, i)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate model id %q", ErrInvalidCatalog, m.ID)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		c.byID[m.ID] = m
		c.models = append(c.models, m)
	}
	return c, nil
}

// ParseFile reads and parses a model table file.
func ParseFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("catalog: read file: %w", err)
	}
	return Parse(data)
}

// ParseFS reads and parses a model table from fs.FS (e.g. embed.FS or os.DirFS).
func ParseFS(fsys fs.FS, name string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("catalog: read fs: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded model table. It panics if models.yaml is malformed.
var Default = sync.OnceValue(func() *Catalog {
	c, err := Parse(defaultTable)
	if err != nil {
		panic(err)
	}
	return c
})

// Models returns the models listed to the host, in table order.
func (c *Catalog) Models() []Model {
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		if !m.Hidden {
			out = append(out, m)
		}
	}
	return out
}

// Lookup returns the model with the given id.
func (c *Catalog) Lookup(id string) (Model, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// SupportsCaching reports whether text blocks for model id may carry cache_control.
// Unknown ids never do.
func (c *Catalog) SupportsCaching(id string) bool {
	return c.byID[id].SupportsCaching
}
