// Package audit records what happened to the rule corpus and to every
// evaluation. Deploy attempts (successful or not) and evaluations are
// captured as immutable events and written asynchronously to a storage
// backend.
//
// # Architecture
//
//  1. Recorder - enqueues events and writes them in the background
//  2. Storage Backend - persists events (memory, SQLite)
//  3. Retention - prunes old events on a cron schedule
//
// The audit trail is a log only. The rule-set repository is never rebuilt
// from it.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/audit.db",
//	    Driver:  storage.DriverModernc,
//	    WALMode: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	rec.Record(ctx, &audit.Event{Type: audit.EventDeploy, RuleSet: "kyc", Success: true})
package audit
