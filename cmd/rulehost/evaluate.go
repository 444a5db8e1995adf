package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/b3ckham/Orchestrator/pkg/cli"
	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules/engine"
	"github.com/b3ckham/Orchestrator/pkg/ruleset"
)

var evaluateFlags struct {
	rulesDir  string
	ruleSet   string
	factsFile string
	format    string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate facts against a rule directory",
	Long: `Deploy a rule directory into an in-process engine and evaluate one fact
document against it, without starting a server.

The fact document has the same shape as the facts object of the HTTP
evaluate request:

  {"member": {...}, "wallet": {...}, "compliance": {...}}

Examples:
  # Evaluate a request against the kyc agenda group
  rulehost evaluate --rules rules/ --rule-set kyc --facts request.json

  # Read facts from stdin and print JSON
  cat request.json | rulehost evaluate --rules rules/ --rule-set kyc --facts - --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.rulesDir, "rules", "r", "", "rule directory to deploy (required)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.ruleSet, "rule-set", "s", "", "agenda group to focus; empty fires the default group")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.factsFile, "facts", "f", "-", "fact document, or - for stdin")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
}

// evaluationReport adds a text rendering to an evaluation outcome.
type evaluationReport struct {
	*ruleset.EvaluationOutcome
}

// RenderText implements cli.TextRenderer.
func (r evaluationReport) RenderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Matched: %t\n", r.Matched); err != nil {
		return err
	}
	if r.Outcome != "" {
		if _, err := fmt.Fprintf(w, "Outcome: %s\n", r.Outcome); err != nil {
			return err
		}
	}
	for _, reason := range r.Reasons {
		if _, err := fmt.Fprintf(w, "  - %s\n", reason); err != nil {
			return err
		}
	}
	return nil
}

func runEvaluate(ctx context.Context, in io.Reader, out io.Writer) error {
	format, err := cli.ParseFormat(evaluateFlags.format)
	if err != nil {
		return err
	}
	if evaluateFlags.rulesDir == "" {
		return errors.New("--rules must be specified")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fc, err := readFacts(evaluateFlags.factsFile, in)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	svc, err := ruleset.NewService(ctx, engine.New(nil, logger), ruleset.Options{Logger: logger})
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	result, err := svc.LoadBaseline(ctx, evaluateFlags.rulesDir, nil)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	if result == nil {
		return cli.NewCommandError("evaluate", fmt.Errorf("no rule sets found in %s", evaluateFlags.rulesDir))
	}

	outcome := svc.Evaluate(ctx, evaluateFlags.ruleSet, fc)
	return cli.NewFormatter(format).FormatTo(out, evaluationReport{outcome})
}

func readFacts(path string, stdin io.Reader) (*facts.FactContext, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open facts: %w", err)
		}
		defer f.Close()
		r = f
	}

	var fc facts.FactContext
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode facts: %w", err)
	}
	return &fc, nil
}
