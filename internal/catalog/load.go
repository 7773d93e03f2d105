package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/PACSamericana/poly/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed data/ct_abdomen_pelvis.yaml
var builtinYAML []byte

var (
	builtinOnce sync.Once
	builtin     *Catalog
)

// Default returns the built-in CT abdomen and pelvis catalog
func Default() *Catalog {
	builtinOnce.Do(func() {
		c, err := Parse(builtinYAML)
		if err != nil {
			panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
		}
		builtin = c
	})
	return builtin
}

// Load returns the catalog at path, or the built-in catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog invariants and builds the key index
func (c *Catalog) Validate() error {
	if len(c.Sections) == 0 {
		return fmt.Errorf("catalog has no sections")
	}

	index := make(map[model.SectionKey]int, len(c.Sections))
	for i := range c.Sections {
		s := &c.Sections[i]
		s.Key = model.SectionKey(strings.TrimSpace(string(s.Key)))

		if s.Key == "" {
			return fmt.Errorf("section %d has no key", i)
		}
		if _, dup := index[s.Key]; dup {
			return fmt.Errorf("duplicate section key: %s", s.Key)
		}
		if strings.TrimSpace(s.Normal) == "" {
			return fmt.Errorf("section %s has no normal template", s.Key)
		}

		subKeys := make(map[string]bool, len(s.Subsections))
		for _, sub := range s.Subsections {
			if sub.Key == "" || strings.TrimSpace(sub.Normal) == "" {
				return fmt.Errorf("section %s has a subsection without key or normal template", s.Key)
			}
			if subKeys[sub.Key] {
				return fmt.Errorf("section %s: duplicate subsection key: %s", s.Key, sub.Key)
			}
			subKeys[sub.Key] = true
		}

		index[s.Key] = i
	}

	c.index = index
	return nil
}
