package main

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/gridmap/internal/core"
)

// parseColumnFlag parses one --column value:
//
//	Name                    bare column, emitted as "Name"
//	field=Name              column Name emitted as "field"
//	field=Name|autofill     empty cells repeat the previous record's value
//	field=Name|default=0    empty cells become "0"
func parseColumnFlag(s string) (core.ColumnDecl, error) {
	head, opts, hasOpts := strings.Cut(s, "|")

	decl := core.ColumnDecl{Kind: core.DeclBare, Name: head}
	if field, name, ok := strings.Cut(head, "="); ok {
		decl.Field, decl.Name = field, name
	}
	if decl.Name == "" {
		return core.ColumnDecl{}, fmt.Errorf("--column %q: empty name: %w", s, core.ErrInvalidColumn)
	}
	if !hasOpts {
		return decl, nil
	}

	decl.Kind = core.DeclEntry
	for _, opt := range strings.Split(opts, "|") {
		key, value, _ := strings.Cut(opt, "=")
		switch strings.TrimSpace(key) {
		case "autofill":
			decl.Autofill = true
		case "default":
			decl.Default = value
		default:
			return core.ColumnDecl{}, fmt.Errorf("--column %q: unknown option %q: %w", s, opt, core.ErrInvalidColumn)
		}
	}
	return decl, nil
}

// loadColumns combines a columns file with --column flags, file first.
func loadColumns(data []byte, flags []string) (core.Columns, error) {
	var cols core.Columns
	if len(data) > 0 {
		parsed, err := core.ParseColumns(data)
		if err != nil {
			return nil, err
		}
		cols = parsed
	}
	for _, f := range flags {
		decl, err := parseColumnFlag(f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, decl)
	}
	return cols, nil
}
