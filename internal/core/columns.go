package core

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DeclKind tells a bare column name from a structured entry.
type DeclKind int

const (
	DeclBare  DeclKind = iota // "Amount"
	DeclEntry                 // {name: Amount, autofill: true, default: "0"}
)

// ColumnDecl is one column as written in configuration.
type ColumnDecl struct {
	Kind     DeclKind
	Key      string // Declaration key in mapping form, empty in list form
	Name     string
	Field    string // Explicit output key (list form entries only)
	Autofill bool
	Default  string
}

// Bare declares a column looked up and emitted under name.
func Bare(name string) ColumnDecl {
	return ColumnDecl{Kind: DeclBare, Name: name}
}

// Spec normalizes the declaration over the default column definition.
func (d ColumnDecl) Spec() ColumnSpec {
	spec := ColumnSpec{Name: d.Name}
	if spec.Name == "" {
		spec.Name = d.Key
	}

	switch {
	case d.Field != "":
		spec.Field = d.Field
	case d.Key != "":
		spec.Field = d.Key
	default:
		spec.Field = spec.Name
	}

	if d.Kind == DeclEntry {
		spec.Autofill = d.Autofill
		spec.Default = d.Default
	}
	return spec
}

// Columns is an ordered list of column declarations.
//
// YAML (and JSON) formats supported:
//   - Single name: "Amount"
//   - List of names and entries: [Date, {name: Amount, autofill: true}]
//   - Ordered mapping of output key to name or entry:
//     {date: Date, amount: {name: Amount, default: "0"}}
type Columns []ColumnDecl

// columnEntry is the structured form of a declaration.
type columnEntry struct {
	Name     string `yaml:"name"`
	Field    string `yaml:"field"`
	Autofill bool   `yaml:"autofill"`
	Default  string `yaml:"default"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Columns) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			*c = nil
			return nil
		}
		*c = Columns{Bare(node.Value)}
		return nil

	case yaml.SequenceNode:
		out := make(Columns, 0, len(node.Content))
		for _, item := range node.Content {
			decl, err := decodeDecl("", item)
			if err != nil {
				return err
			}
			out = append(out, decl)
		}
		*c = out
		return nil

	case yaml.MappingNode:
		out := make(Columns, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			decl, err := decodeDecl(node.Content[i].Value, node.Content[i+1])
			if err != nil {
				return err
			}
			out = append(out, decl)
		}
		*c = out
		return nil
	}

	return fmt.Errorf("line %d: columns must be a name, a list or a mapping: %w", node.Line, ErrInvalidColumn)
}

// decodeDecl decodes one declaration. key is empty in list form.
func decodeDecl(key string, node *yaml.Node) (ColumnDecl, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		decl := ColumnDecl{Kind: DeclBare, Key: key}
		if node.ShortTag() != "!!null" {
			decl.Name = node.Value
		}
		return decl, nil

	case yaml.MappingNode:
		var entry columnEntry
		if err := node.Decode(&entry); err != nil {
			return ColumnDecl{}, fmt.Errorf("line %d: %w: %v", node.Line, ErrInvalidColumn, err)
		}
		return ColumnDecl{
			Kind:     DeclEntry,
			Key:      key,
			Name:     entry.Name,
			Field:    entry.Field,
			Autofill: entry.Autofill,
			Default:  entry.Default,
		}, nil
	}

	return ColumnDecl{}, fmt.Errorf("line %d: column must be a name or a mapping: %w", node.Line, ErrInvalidColumn)
}

// Resolve normalizes every declaration into a ColumnSpec, once, before any
// row is processed.
func (c Columns) Resolve() ([]ColumnSpec, error) {
	specs := make([]ColumnSpec, 0, len(c))
	seen := make(map[string]int, len(c))

	for i, decl := range c {
		spec := decl.Spec()
		if spec.Name == "" {
			return nil, fmt.Errorf("column %d: empty name: %w", i+1, ErrInvalidColumn)
		}
		if prev, ok := seen[spec.Field]; ok {
			return nil, fmt.Errorf("column %d: output field %q already declared by column %d: %w",
				i+1, spec.Field, prev, ErrInvalidColumn)
		}
		seen[spec.Field] = i + 1
		specs = append(specs, spec)
	}

	return specs, nil
}

// ParseColumns parses a YAML or JSON column declaration document.
func ParseColumns(data []byte) (Columns, error) {
	var cols Columns
	if err := yaml.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("parse columns: %w", err)
	}
	return cols, nil
}

// Fields returns the output keys of specs in declaration order.
func Fields(specs []ColumnSpec) []string {
	out := make([]string, len(specs))
	for i, spec := range specs {
		out[i] = spec.Field
	}
	return out
}
