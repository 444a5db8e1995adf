package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/b3ckham/Orchestrator/pkg/cli"
	"github.com/b3ckham/Orchestrator/pkg/rules"
	"github.com/b3ckham/Orchestrator/pkg/rules/engine"
	"github.com/b3ckham/Orchestrator/pkg/ruleset"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate <file|dir>...",
	Short: "Validate rule set files",
	Long: `Compile rule set files offline and report diagnostics.

Each file is parsed, validated and compiled exactly as a deploy would:
  - YAML syntax
  - Rule structure (names, agenda groups, saliences)
  - Fact types, field names and enum literals
  - Operators, actions and scripts

Directories are searched recursively for *.yaml and *.yml files. Two files
that map to the same rule set name are reported as an error.

Examples:
  # Validate one file
  rulehost validate rules/kyc.yaml

  # Validate a directory
  rulehost validate rules/

  # JSON output for CI
  rulehost validate rules/ --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// FileResult is the validation result for one rule set file.
type FileResult struct {
	File    string   `json:"file"`
	RuleSet string   `json:"ruleSet,omitempty"`
	Valid   bool     `json:"valid"`
	Rules   int      `json:"rules,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidationReport summarizes a validate run.
type ValidationReport struct {
	Files   []FileResult `json:"files"`
	Valid   int          `json:"valid"`
	Invalid int          `json:"invalid"`
}

// RenderText implements cli.TextRenderer.
func (r *ValidationReport) RenderText(w io.Writer) error {
	for _, f := range r.Files {
		if f.Valid {
			if _, err := fmt.Fprintf(w, "✓ %s (%s, %d rules)\n", f.File, f.RuleSet, f.Rules); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "✗ %s\n", f.File); err != nil {
			return err
		}
		for _, e := range f.Errors {
			if _, err := fmt.Fprintf(w, "    %s\n", e); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%d valid, %d invalid\n", r.Valid, r.Invalid)
	return err
}

func runValidate(ctx context.Context, out io.Writer, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loader := ruleset.DefaultLoaderConfig()
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := ruleset.ListFiles(arg, loader)
		if err != nil {
			return cli.NewCommandError("validate", err)
		}
		paths = append(paths, files...)
	}
	if len(paths) == 0 {
		return cli.NewCommandError("validate", errors.New("no rule set files found"))
	}

	backend := engine.New(nil, slog.New(slog.DiscardHandler))
	report := validateFiles(ctx, backend, paths, loader)

	if err := cli.NewFormatter(format).FormatTo(out, report); err != nil {
		return err
	}
	if report.Invalid > 0 {
		return &cli.ValidationFailedError{Failed: report.Invalid, Total: len(report.Files)}
	}
	return nil
}

// validateFiles compiles each file on its own so that one broken file does
// not hide diagnostics in the others.
func validateFiles(ctx context.Context, backend rules.Backend, paths []string, loader *ruleset.LoaderConfig) *ValidationReport {
	report := &ValidationReport{Files: make([]FileResult, 0, len(paths))}
	seen := make(map[string]string, len(paths))

	for _, path := range paths {
		result := validateFile(ctx, backend, path, loader)
		if result.Valid {
			if prev, ok := seen[result.RuleSet]; ok {
				result.Valid = false
				result.Errors = []string{fmt.Sprintf("rule set %q is already defined by %s", result.RuleSet, prev)}
			} else {
				seen[result.RuleSet] = path
			}
		}

		if result.Valid {
			report.Valid++
		} else {
			report.Invalid++
		}
		report.Files = append(report.Files, result)
	}
	return report
}

func validateFile(ctx context.Context, backend rules.Backend, path string, loader *ruleset.LoaderConfig) FileResult {
	result := FileResult{File: path}

	name, source, err := ruleset.LoadFile(path, loader)
	if err != nil {
		result.Errors = []string{err.Error()}
		return result
	}
	result.RuleSet = name

	artifact, err := backend.Compile(ctx, map[string]string{name: source})
	if err != nil {
		var failure *rules.BuildFailure
		if errors.As(err, &failure) {
			for _, d := range failure.Diagnostics {
				result.Errors = append(result.Errors, diagnosticText(d))
			}
		} else {
			result.Errors = []string{err.Error()}
		}
		return result
	}

	result.Valid = true
	result.Rules = artifact.RuleCount()
	return result
}

func diagnosticText(d rules.Diagnostic) string {
	if d.Location != "" {
		return fmt.Sprintf("[%s] %s", d.Location, d.Message)
	}
	return d.Message
}
