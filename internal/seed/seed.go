// Package seed loads pen and ink fixtures from YAML. A default collection is
// embedded for first runs.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"inked/pkg/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Collection is a fixture set. Pens may reference inks of the same
// collection by id.
type Collection struct {
	Inks []domain.Ink `yaml:"inks"`
	Pens []domain.Pen `yaml:"pens"`
}

// Empty reports whether the collection holds no entities.
func (c Collection) Empty() bool {
	return len(c.Pens) == 0 && len(c.Inks) == 0
}

// Default returns a fresh copy of the embedded starter collection.
func Default() Collection {
	c, err := Decode(bytes.NewReader(defaultsYAML))
	if err != nil {
		panic(fmt.Sprintf("seed: embedded defaults: %v", err))
	}
	return c
}

// Load reads and validates a fixture file.
func Load(path string) (Collection, error) {
	f, err := os.Open(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return Collection{}, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	c, err := Decode(f)
	if err != nil {
		return Collection{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode parses a YAML fixture document and validates its references.
// Unknown fields are rejected.
func Decode(r io.Reader) (Collection, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Collection
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Collection{}, fmt.Errorf("decode seed: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Collection{}, err
	}
	return c, nil
}

// Validate checks id uniqueness and that every pen ink reference names an
// ink with an explicit id in the collection.
func (c Collection) Validate() error {
	inkIDs := make(map[string]struct{}, len(c.Inks))
	for i, ink := range c.Inks {
		if ink.ID == "" {
			continue
		}
		if _, dup := inkIDs[ink.ID]; dup {
			return fmt.Errorf("ink %d: duplicate id %q", i, ink.ID)
		}
		inkIDs[ink.ID] = struct{}{}
	}
	penIDs := make(map[string]struct{}, len(c.Pens))
	for i, pen := range c.Pens {
		if pen.ID != "" {
			if _, dup := penIDs[pen.ID]; dup {
				return fmt.Errorf("pen %d: duplicate id %q", i, pen.ID)
			}
			penIDs[pen.ID] = struct{}{}
		}
		if pen.InkID == nil {
			continue
		}
		if _, ok := inkIDs[*pen.InkID]; !ok {
			return fmt.Errorf("pen %d: ink %q is not in the seed", i, *pen.InkID)
		}
	}
	return nil
}

// Encode writes the collection as YAML.
func Encode(w io.Writer, c Collection) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}
	return enc.Close()
}
