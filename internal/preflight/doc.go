// Package preflight checks that linkmap can run on this machine: the store
// directory has space and is writable, the store opens, the lock directory
// is usable and the configured embedder answers.
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if preflight.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
