package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	verity "github.com/verityhq/verity"
	"github.com/verityhq/verity/reqdoc"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "check":
		checkCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "verity CLI\n\nUsage:\n  verity check -data data.json -rules rules.yaml [-format text|json] [-q] [-v]\n\nExit status:\n  0  the data satisfies the rules\n  1  the data does not satisfy the rules\n  2  usage or configuration error")
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var dataPath string
	var rulesPath string
	var format string
	var quiet bool
	var verbose bool
	fs.StringVar(&dataPath, "data", "", "data file to check (.json, .yaml or .yml)")
	fs.StringVar(&rulesPath, "rules", "", "requirement document (.json, .yaml or .yml)")
	fs.StringVar(&format, "format", "text", "failure output format: text or json")
	fs.BoolVar(&quiet, "q", false, "suppress output, report through the exit status only")
	fs.BoolVar(&verbose, "v", false, "enable verbose logs")
	_ = fs.Parse(args)
	if dataPath == "" || rulesPath == "" {
		fs.Usage()
		os.Exit(2)
	}
	if format != "text" && format != "json" {
		fatalf("unknown format %q (want text or json)", format)
	}

	logf := func(f string, a ...any) {
		if verbose {
			fmt.Fprintf(os.Stderr, f+"\n", a...)
		}
	}

	req, err := loadRules(rulesPath)
	if err != nil {
		fatalf("rules: %v", err)
	}
	logf("loaded rules: %s", rulesPath)

	data, err := loadData(dataPath)
	if err != nil {
		fatalf("data: %v", err)
	}
	logf("loaded data: %s", dataPath)

	err = verity.Validate(data, req)
	if err == nil {
		logf("check passed")
		return
	}
	ve, ok := verity.AsValidationError(err)
	if !ok {
		fatalf("check: %v", err)
	}
	logf("check failed with %d difference(s)", ve.Differences().Len())
	if !quiet {
		switch format {
		case "json":
			b, err := gojson.MarshalIndent(ve, "", "  ")
			if err != nil {
				fatalf("encode failure: %v", err)
			}
			fmt.Fprintln(os.Stdout, string(b))
		default:
			fmt.Fprintln(os.Stdout, ve.Error())
		}
	}
	os.Exit(1)
}

func loadRules(path string) (verity.Requirement, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch ext(path) {
	case ".yaml", ".yml":
		return reqdoc.ParseYAML(b)
	case ".json":
		return reqdoc.ParseJSON(b)
	}
	return nil, fmt.Errorf("unsupported rules extension %q (want .json, .yaml or .yml)", ext(path))
}

// loadData decodes the data file by extension. JSON numbers decode as
// json.Number so integer data keeps its width.
func loadData(path string) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch ext(path) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return v, nil
	case ".json":
		dec := gojson.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("unsupported data extension %q (want .json, .yaml or .yml)", ext(path))
}

func ext(path string) string { return strings.ToLower(filepath.Ext(path)) }

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(2)
}
