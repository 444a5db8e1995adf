package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on rule host spans.
const (
	AttrRequestID  = "rulehost.request_id"
	AttrRuleSet    = "rulehost.rule_set"
	AttrRuleSets   = "rulehost.rule_sets"
	AttrArtifactID = "rulehost.artifact.id"
	AttrVersion    = "rulehost.artifact.version"
	AttrMatched    = "rulehost.evaluation.matched"
	AttrOutcome    = "rulehost.evaluation.outcome"
	AttrFired      = "rulehost.evaluation.fired"
	AttrAttempt    = "rulehost.deploy.attempt"
	AttrFailed     = "rulehost.build.failed_rule_sets"
)

// Span names.
const (
	SpanDeploy   = "rulehost.deploy"
	SpanBuild    = "rulehost.build"
	SpanEvaluate = "rulehost.evaluate"
)

// SetArtifactAttributes records which artifact a span worked with.
func SetArtifactAttributes(span trace.Span, artifactID, version string) {
	span.SetAttributes(
		attribute.String(AttrArtifactID, artifactID),
		attribute.String(AttrVersion, version),
	)
}

// SetEvaluationAttributes records an evaluation's result.
func SetEvaluationAttributes(span trace.Span, matched bool, outcome string, fired int) {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrMatched, matched),
		attribute.Int(AttrFired, fired),
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String(AttrOutcome, outcome))
	}
	span.SetAttributes(attrs...)
}

// RuleSets returns a span start option naming the rule sets involved.
func RuleSets(names []string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.StringSlice(AttrRuleSets, names),
	)
}
