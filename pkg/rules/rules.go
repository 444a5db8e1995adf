package rules

import (
	"context"
	"errors"
	"time"

	"github.com/b3ckham/Orchestrator/pkg/facts"
)

var (
	// ErrSessionDisposed is returned by session operations after Dispose.
	ErrSessionDisposed = errors.New("session already disposed")

	// ErrNilArtifact is returned when an operation needs an artifact and got nil.
	ErrNilArtifact = errors.New("artifact is nil")

	// ErrForeignArtifact is returned when an artifact was built by another backend.
	ErrForeignArtifact = errors.New("artifact was not built by this backend")
)

// Artifact is an immutable executable form of a whole rule corpus.
type Artifact interface {
	// ID uniquely identifies this build.
	ID() string
	// Version is a content hash of the sources the artifact was built from.
	// Two builds of the same corpus share a version.
	Version() string
	BuiltAt() time.Time
	// RuleSets returns the sorted names of the rule sets compiled in.
	RuleSets() []string
	RuleCount() int
}

// ResultSink receives consequences of fired rules. It plays the role of the
// "response" global visible to rule actions.
type ResultSink interface {
	SetMatch(matched bool)
	SetOutcome(outcome string)
	AddReason(reason string)
}

// Session is the working memory of one evaluation.
type Session interface {
	// Insert adds a fact. At most one fact per kind; a second insert of the
	// same kind replaces the first.
	Insert(fact facts.Fact) error
	// Focus restricts firing to the rules of one agenda group.
	Focus(group string) error
	// FireAll runs the match/fire cycle until no activation is left and
	// returns the number of rules fired.
	FireAll(ctx context.Context) (int, error)
	// Dispose releases the session. It is idempotent.
	Dispose()
}

// Backend compiles sources and opens sessions.
type Backend interface {
	// Compile builds all sources, keyed by rule-set name, into one artifact.
	// On failure the error is a *BuildFailure.
	Compile(ctx context.Context, sources map[string]string) (Artifact, error)
	OpenSession(ctx context.Context, artifact Artifact, sink ResultSink) (Session, error)
}
