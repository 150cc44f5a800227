package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/gridmap/internal/config"
	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/JonMunkholm/gridmap/internal/runner"
	"github.com/JonMunkholm/gridmap/internal/source"
	"github.com/spf13/cobra"
)

type transformOptions struct {
	columnsFile  string
	columns      []string
	headerOffset int
	noHeader     bool
	sheet        string
	rng          string
	format       string
	target       string
	output       string
}

func newTransformCommand() *cobra.Command {
	var opts transformOptions
	cmd := &cobra.Command{
		Use:   "transform INPUT",
		Short: "Transform one sheet into records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.pipeline(args[0])
			if err != nil {
				return err
			}
			if err := validOutput(opts.output); err != nil {
				return err
			}

			rep, err := runner.New(runner.Options{}).RunPipeline(cmd.Context(), p)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), opts.output, rep, core.Fields(p.Specs())); err != nil {
				return err
			}
			if rep.HasIssue(core.ErrEmptyInput) {
				return errEmptyInput
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.columnsFile, "columns", "", "YAML or JSON file declaring the columns")
	f.StringArrayVar(&opts.columns, "column", nil, "Column as NAME or FIELD=NAME[|autofill][|default=VALUE]; repeatable")
	f.IntVar(&opts.headerOffset, "header-offset", 0, "Zero-based row index of the header")
	f.BoolVar(&opts.noHeader, "no-header", false, "Treat every row as data and key cells by position")
	f.StringVar(&opts.sheet, "sheet", "", "Worksheet name (xlsx)")
	f.StringVar(&opts.rng, "range", "", "A1 range to read, such as B2:F or Sheet1!A:D")
	f.StringVar(&opts.format, "format", "", "Input format: csv, tsv, xlsx or json (detected when empty)")
	f.StringVar(&opts.target, "target", "", "Context key records are merged under")
	f.StringVarP(&opts.output, "output", "o", outputJSON, "Output format: json, ndjson or csv")
	cmd.MarkFlagsMutuallyExclusive("header-offset", "no-header")
	return cmd
}

// pipeline builds the pipeline described by the flags for input.
func (o *transformOptions) pipeline(input string) (*config.Pipeline, error) {
	format, err := source.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}

	var data []byte
	if o.columnsFile != "" {
		data, err = os.ReadFile(o.columnsFile)
		if err != nil {
			return nil, fmt.Errorf("read columns: %w", err)
		}
	}
	cols, err := loadColumns(data, o.columns)
	if err != nil {
		return nil, err
	}

	offset := core.Offset(o.headerOffset)
	if o.noHeader {
		offset = core.NoHeader
	}

	src := source.Spec{Path: input, Format: format, Sheet: o.sheet, Range: o.rng}
	p, err := config.NewPipeline(input, src, offset, cols)
	if err != nil {
		return nil, err
	}
	p.Target = o.target
	return p, nil
}
