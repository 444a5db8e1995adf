// Rulehost compiles business rule sets into an in-memory knowledge base and
// evaluates member, wallet and compliance facts against it.
//
// It serves an HTTP API for deploying rule sets at runtime, listing the
// active rule sets and evaluating facts. Every deploy recompiles the whole
// corpus and swaps the live artifact atomically; in-flight evaluations
// finish against the artifact they started with.
//
// Usage:
//
//	# Start the server with the default configuration
//	rulehost run
//
//	# Start with a configuration file and a baseline rule directory
//	rulehost run --config /etc/rulehost/config.yaml --rules ./rules --watch
//
//	# Check rule files offline
//	rulehost validate rules/
//
//	# Evaluate a fact document against a rule directory
//	rulehost evaluate --rules rules/ --rule-set kyc --facts request.json
package main

func main() {
	Execute()
}
