package schema

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/engine"
	"github.com/JonMunkholm/sheetcheck/internal/rules"
	"gopkg.in/yaml.v3"
)

// fileDefinition is the YAML form of a Definition:
//
//	key: servico
//	label: Serviços
//	sheet: servico
//	header_row: 1
//	duplicate_keys: [descricao]
//	export_table: servicos
//	columns:
//	  - key: descricao
//	    name: nome
//	    before: not_empty
//	  - key: custosGerais
//	    name: [custo, gerais]
//	    required: false
//	    default: 0
//	    type: float
type fileDefinition struct {
	Key           string       `yaml:"key"`
	Label         string       `yaml:"label"`
	Description   string       `yaml:"description"`
	Sheet         string       `yaml:"sheet"`
	HeaderRow     *int         `yaml:"header_row"`
	DuplicateKeys []string     `yaml:"duplicate_keys"`
	ExportTable   string       `yaml:"export_table"`
	Columns       []fileColumn `yaml:"columns"`
}

type fileColumn struct {
	Key      string      `yaml:"key"`
	Name     searchTerms `yaml:"name"`
	Required *bool       `yaml:"required"` // Defaults to true
	Default  any         `yaml:"default"`
	Type     string      `yaml:"type"`
	Before   string      `yaml:"before"`
	After    string      `yaml:"after"`
	Enum     []string    `yaml:"enum"`
}

// searchTerms accepts either a single string or a list of strings.
type searchTerms []string

func (s *searchTerms) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = searchTerms{value.Value}
		return nil
	case yaml.SequenceNode:
		var terms []string
		if err := value.Decode(&terms); err != nil {
			return err
		}
		*s = terms
		return nil
	default:
		return fmt.Errorf("line %d: name must be a string or a list of strings", value.Line)
	}
}

// LoadYAML decodes one definition. Unknown fields are rejected.
func LoadYAML(r io.Reader) (Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fd fileDefinition
	if err := dec.Decode(&fd); err != nil {
		if errors.Is(err, io.EOF) {
			return Definition{}, fmt.Errorf("%w: empty document", ErrInvalidDefinition)
		}
		return Definition{}, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	def, err := fd.toDefinition()
	if err != nil {
		return Definition{}, err
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadFile reads a definition from a YAML file.
func LoadFile(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, err
	}
	defer f.Close()

	def, err := LoadYAML(f)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadDir reads every *.yaml and *.yml file in dir, in file name order.
func LoadDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	defs := make([]Definition, 0, len(paths))
	for _, p := range paths {
		def, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (fd fileDefinition) toDefinition() (Definition, error) {
	def := Definition{
		Key:           fd.Key,
		Label:         fd.Label,
		Description:   fd.Description,
		Sheet:         fd.Sheet,
		HeaderRow:     engine.DefaultHeaderRow,
		DuplicateKeys: fd.DuplicateKeys,
		ExportTable:   fd.ExportTable,
	}
	if fd.HeaderRow != nil {
		def.HeaderRow = *fd.HeaderRow
	}
	if def.Label == "" {
		def.Label = def.Key
	}

	for _, fc := range fd.Columns {
		c, err := fc.toColumn()
		if err != nil {
			return Definition{}, fmt.Errorf("%w %q: column %q: %w", ErrInvalidDefinition, fd.Key, fc.Key, err)
		}
		def.Columns = append(def.Columns, c)
	}
	return def, nil
}

func (fc fileColumn) toColumn() (engine.Column, error) {
	c := engine.Column{
		Key:      fc.Key,
		Names:    fc.Name,
		Required: fc.Required == nil || *fc.Required,
		Default:  fc.Default,
	}

	kind, err := rules.ParseKind(fc.Type)
	if err != nil {
		return engine.Column{}, err
	}
	c.Type = kind

	if fc.Before != "" {
		if c.Before, err = rules.Hook(fc.Before); err != nil {
			return engine.Column{}, err
		}
	}
	if fc.After != "" {
		if c.After, err = rules.Hook(fc.After); err != nil {
			return engine.Column{}, err
		}
	}
	if len(fc.Enum) > 0 {
		if c.After != nil {
			c.After = rules.Chain(c.After, rules.OneOf(fc.Enum...))
		} else {
			c.After = rules.OneOf(fc.Enum...)
		}
	}
	return c, nil
}

// RegisterDir loads every definition in dir and adds it to the registry.
// It returns the number of definitions added.
func RegisterDir(dir string) (int, error) {
	defs, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, def := range defs {
		if err := Add(def); err != nil {
			return 0, err
		}
	}
	return len(defs), nil
}
