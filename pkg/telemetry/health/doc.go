// Package health provides liveness and readiness probes.
//
// Liveness only confirms the process is serving. Readiness runs every
// registered check concurrently, each under its own timeout:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("artifact", health.ArtifactCheck(service.Deployed))
//	checker.RegisterCheck("audit_storage", health.PingCheck(sqliteStorage))
//	mux.Handle("/ready", checker.ReadinessHandler())
package health
