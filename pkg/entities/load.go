package entities

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk registration format:
//
//	kinds:
//	  - tag: club
//	    table: clubs
//	    attributes:
//	      - name: website
type File struct {
	Kinds []Kind `yaml:"kinds"`
}

// LoadFile reads a registration file and builds a validated registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kinds file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a registration document. Unknown keys are rejected so a
// misspelled column option does not silently fall back to a default.
func Parse(data []byte) (*Registry, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse kinds file: %w", err)
	}
	if len(f.Kinds) == 0 {
		return nil, fmt.Errorf("%w: no kinds declared", ErrInvalidKind)
	}
	return NewRegistry(f.Kinds...)
}
