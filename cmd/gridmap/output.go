package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/gridmap/internal/runner"
)

const (
	outputJSON   = "json"
	outputNDJSON = "ndjson"
	outputCSV    = "csv"
)

func validOutput(format string) error {
	switch format {
	case outputJSON, outputNDJSON, outputCSV:
		return nil
	}
	return fmt.Errorf("--output %q: must be one of json, ndjson, csv", format)
}

// writeReport writes rep to w.
//
//	json    the whole report, indented
//	ndjson  one merged context per line
//	csv     a header of fields, then one line per record
func writeReport(w io.Writer, format string, rep *runner.Report, fields []string) error {
	switch format {
	case outputNDJSON:
		enc := json.NewEncoder(w)
		for _, res := range rep.Records {
			if err := enc.Encode(res.Context); err != nil {
				return err
			}
		}
		return nil

	case outputCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(fields); err != nil {
			return err
		}
		line := make([]string, len(fields))
		for _, res := range rep.Records {
			for i, f := range fields {
				line[i] = res.Record[f]
			}
			if err := cw.Write(line); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
}
