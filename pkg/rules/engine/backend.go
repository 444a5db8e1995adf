package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules"
	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
	"github.com/b3ckham/Orchestrator/pkg/rules/parser"
	"github.com/b3ckham/Orchestrator/pkg/rules/validator"
)

// Config contains configuration for the engine backend.
type Config struct {
	// MaxSourceBytes limits the size of a single rule-set source.
	// Default: 1MB
	MaxSourceBytes int64

	// MaxConditionDepth limits condition nesting.
	// Default: 10
	MaxConditionDepth int

	// ScriptTimeout bounds a single script action. Zero means no limit
	// beyond the evaluation context.
	// Default: 1 second
	ScriptTimeout time.Duration

	// CompileConcurrency limits how many rule sets compile in parallel.
	// Default: GOMAXPROCS
	CompileConcurrency int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxSourceBytes:     1024 * 1024,
		MaxConditionDepth:  10,
		ScriptTimeout:      time.Second,
		CompileConcurrency: runtime.GOMAXPROCS(0),
	}
}

// Backend is the in-process rule engine. It is safe for concurrent use.
type Backend struct {
	config    *Config
	logger    *slog.Logger
	validator *validator.Validator

	openSessions atomic.Int64
}

var _ rules.Backend = (*Backend)(nil)

// New creates a new engine backend.
func New(config *Config, logger *slog.Logger) *Backend {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CompileConcurrency <= 0 {
		config.CompileConcurrency = runtime.GOMAXPROCS(0)
	}
	if config.MaxConditionDepth <= 0 {
		config.MaxConditionDepth = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Backend{
		config:    config,
		logger:    logger.With("component", "rules.engine"),
		validator: validator.New(),
	}
}

// Compile implements rules.Backend. Rule sets are parsed, validated and
// lowered concurrently; any failure yields a *rules.BuildFailure listing one
// diagnostic per failing rule set.
func (b *Backend) Compile(ctx context.Context, sources map[string]string) (rules.Artifact, error) {
	start := time.Now()

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	compiled := make([][]*compiledRule, len(names))
	failures := make([]*rulesErrors.ErrorList, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.CompileConcurrency)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			compiled[i], failures[i] = b.compileSource(name, sources[name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compile cancelled: %w", err)
	}

	var diags []rules.Diagnostic
	for i, errs := range failures {
		if errs != nil && errs.HasErrors() {
			diags = append(diags, diagnosticFor(names[i], errs))
		}
	}
	if len(diags) > 0 {
		b.logger.Warn("rule corpus failed to compile",
			"rule_sets", len(names),
			"failed", len(diags),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, rules.NewBuildFailure(diags)
	}

	var all []*compiledRule
	for _, cr := range compiled {
		all = append(all, cr...)
	}
	b.warnDuplicateRuleNames(all)

	kb := newKnowledgeBase(uuid.NewString(), corpusVersion(names, sources), names, all)

	b.logger.Info("rule corpus compiled",
		"artifact_id", kb.ID(),
		"version", kb.Version(),
		"rule_sets", len(names),
		"rules", kb.RuleCount(),
		"scripts", kb.ScriptCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return kb, nil
}

// compileSource parses, validates and lowers one source.
func (b *Backend) compileSource(name, source string) ([]*compiledRule, *rulesErrors.ErrorList) {
	p := parser.New().
		WithMaxSourceBytes(b.config.MaxSourceBytes).
		WithMaxDepth(b.config.MaxConditionDepth)

	rs, err := p.ParseString(source, name)
	if err != nil {
		return nil, asErrorList(name, err)
	}

	if err := b.validator.Validate(rs); err != nil {
		return nil, asErrorList(name, err)
	}

	compiled, errs := compileRuleSet(rs)
	if errs.HasErrors() {
		return nil, errs
	}
	return compiled, nil
}

// OpenSession implements rules.Backend.
func (b *Backend) OpenSession(ctx context.Context, artifact rules.Artifact, sink rules.ResultSink) (rules.Session, error) {
	if artifact == nil {
		return nil, rules.ErrNilArtifact
	}
	kb, ok := artifact.(*KnowledgeBase)
	if !ok || kb == nil {
		return nil, rules.ErrForeignArtifact
	}
	if sink == nil {
		return nil, errors.New("result sink is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.openSessions.Add(1)
	return &Session{
		kb:            kb,
		sink:          sink,
		logger:        b.logger,
		scriptTimeout: b.config.ScriptTimeout,
		memory:        make(map[facts.Kind]facts.Fact, len(facts.Kinds)),
		release:       func() { b.openSessions.Add(-1) },
	}, nil
}

// OpenSessions returns the number of sessions opened and not yet disposed.
func (b *Backend) OpenSessions() int64 {
	return b.openSessions.Load()
}

func (b *Backend) warnDuplicateRuleNames(all []*compiledRule) {
	owner := make(map[string]string)
	for _, r := range all {
		if prev, dup := owner[r.name]; dup && prev != r.ruleSet {
			b.logger.Warn("rule name defined in more than one rule set",
				"rule", r.name,
				"rule_sets", []string{prev, r.ruleSet},
			)
			continue
		}
		owner[r.name] = r.ruleSet
	}
}

// diagnosticFor condenses the errors of one rule set into one diagnostic,
// located at the first error.
func diagnosticFor(name string, errs *rulesErrors.ErrorList) rules.Diagnostic {
	d := rules.Diagnostic{RuleSet: name}
	if first := errs.First(); first != nil && first.Location.IsValid() {
		d.Location = first.Location.String()
	}
	if errs.Count() == 1 {
		e := errs.First()
		d.Message = e.Message
		if e.Suggestion != "" {
			d.Message += "; " + e.Suggestion
		}
		return d
	}
	d.Message = errs.Error()
	return d
}

func asErrorList(name string, err error) *rulesErrors.ErrorList {
	var list *rulesErrors.ErrorList
	if errors.As(err, &list) {
		return list
	}
	out := rulesErrors.NewErrorList()
	var single *rulesErrors.Error
	if errors.As(err, &single) {
		out.Add(single)
		return out
	}
	out.AddError(rulesErrors.ErrorTypeStructural, err.Error(), ast.Location{File: name})
	return out
}

// corpusVersion hashes the sorted (name, source) pairs.
func corpusVersion(names []string, sources map[string]string) string {
	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(sources[name]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
