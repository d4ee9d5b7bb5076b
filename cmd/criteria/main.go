package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/filter"
)

func main() {
	input := flag.String("f", "-", "filter set JSON file, - for stdin")
	params := flag.Bool("params", false, "render ? placeholders and print bind arguments")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: criteria [-f file] [-params] [-json]")
		fmt.Fprintln(os.Stderr, "\nReads a filter set such as")
		fmt.Fprintln(os.Stderr, `  {"dept":{"mode":"multiple","values":["10","20"]},"fund":{"mode":"all"}}`)
		fmt.Fprintln(os.Stderr, "and prints the revenue and expense criteria.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*input, *params, *asJSON, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "criteria:", err)
		os.Exit(1)
	}
}

type result struct {
	Context  dimension.Context `json:"context"`
	Criteria string            `json:"criteria"`
	Args     []any             `json:"args,omitempty"`
}

func run(path string, params, asJSON bool, stdin io.Reader, out io.Writer) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read filter set: %w", err)
	}

	registry := dimension.Default()
	set, err := filter.DecodeSet(data, registry)
	if err != nil {
		return err
	}

	var renderer filter.Renderer = filter.VerbatimRenderer{}
	if params {
		renderer = filter.ParamRenderer{}
	}
	compiler := filter.NewCompiler(registry, renderer)

	results := make([]result, 0, 2)
	for _, qctx := range dimension.Contexts() {
		criteria, args := compiler.CompileContext(set, qctx)
		results = append(results, result{Context: qctx, Criteria: criteria, Args: args})
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s:%s\n", r.Context, r.Criteria)
		if len(r.Args) > 0 {
			fmt.Fprintf(out, "  args: %v\n", r.Args)
		}
	}
	return nil
}
