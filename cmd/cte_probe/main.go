// Command cte_probe inspects a dataset the way the analysis view will read
// it, so a new export can be checked before it is configured.
//
// Default mode prints a JSON report: inferred column types, the numeric
// features the scatter plot would offer and, with -contract, the result of
// validating the table against the records or projections contract.
//
// With -debug-selector the command instead prints every match of a CSS
// selector in an HTML source (outer HTML, or text with -text), which helps
// find the right "selector" for an html source.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cteview/internal/config"
	"cteview/internal/dataset"
	"cteview/internal/features"
	"cteview/internal/logging"
	htmlparser "cteview/internal/parser/html"
	"cteview/internal/probe"
	"cteview/internal/schema"
)

type report struct {
	Path     string         `json:"path"`
	Kind     string         `json:"kind"`
	Rows     int            `json:"rows"`
	Columns  []probe.Column `json:"columns"`
	Features []string       `json:"features"`
	Contract *schema.Report `json:"contract,omitempty"`
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cte_probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		path     = fs.String("path", "", "dataset path (csv, xlsx or html)")
		kind     = fs.String("kind", "", "csv|xlsx|html; inferred from the extension when empty")
		sheet    = fs.String("sheet", "", "xlsx sheet (first sheet when empty)")
		selector = fs.String("selector", "", "CSS selector of the html table (first <table> when empty)")
		rename   = fs.Bool("rename", true, "apply the CTE display-name mapping before inference")
		contract = fs.String("contract", "", "validate against a contract: records|projections")
		debugSel = fs.String("debug-selector", "", "print every match of this selector in an html source and exit")
		textOnly = fs.Bool("text", false, "with -debug-selector, print text instead of outer HTML")
		pretty   = fs.Bool("pretty", true, "pretty-print JSON output")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(stderr, "missing -path")
		fs.Usage()
		return 2
	}

	if *debugSel != "" {
		f, err := os.Open(*path)
		if err != nil {
			fmt.Fprintf(stderr, "open: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := htmlparser.DebugPrintSelector(stdout, f, *debugSel, *textOnly); err != nil {
			fmt.Fprintf(stderr, "debug selector: %v\n", err)
			return 1
		}
		return 0
	}

	var c *schema.Contract
	switch *contract {
	case "":
	case "records":
		cc := schema.CTEContract()
		c = &cc
	case "projections":
		cc := schema.ProjectionsContract()
		c = &cc
	default:
		fmt.Fprintf(stderr, "unknown contract %q (want records|projections)\n", *contract)
		return 2
	}

	src := config.Source{Kind: *kind, Path: *path, Sheet: *sheet, Selector: *selector}
	t, err := dataset.NewFileLoader(logging.NewNop()).Load(ctx, src)
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return 1
	}
	if *rename {
		if t, err = schema.Rename(t, schema.CTEMapping()); err != nil {
			fmt.Fprintf(stderr, "rename: %v\n", err)
			return 1
		}
	}

	rep := report{
		Path:     src.Path,
		Kind:     src.ResolvedKind(),
		Rows:     t.Len(),
		Columns:  probe.Infer(t),
		Features: features.NumericFeatures(t, schema.CTEMapping().Aliases(schema.RawYear)...),
	}
	if c != nil {
		r := c.Validate(t)
		rep.Contract = &r
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rep); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	if rep.Contract != nil && !rep.Contract.OK() {
		fmt.Fprintln(stderr, rep.Contract.String())
		return 3
	}
	return 0
}
