// Package ruleset hosts deployable rule sets and evaluates facts against
// them.
//
// A Service keeps every deployed rule-set source in a Repository. A deploy
// compiles the whole repository plus the candidate into a new artifact and,
// only if that succeeds, commits the candidate and swaps the artifact into
// the Handle. Evaluations capture the current artifact, run in a fresh
// session and never block deploys or each other.
//
// Basic usage:
//
//	svc, err := ruleset.NewService(ctx, engine.New(nil, logger), ruleset.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	if _, err := svc.Deploy(ctx, "kyc", source); err != nil {
//	    var compileErr *ruleset.CompilationError
//	    if errors.As(err, &compileErr) {
//	        // the previous corpus is still active
//	    }
//	}
//	outcome := svc.Evaluate(ctx, "kyc", &facts.FactContext{Compliance: c})
//
// A Watcher keeps a directory of rule files deployed as they change.
package ruleset
