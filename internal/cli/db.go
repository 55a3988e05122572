package cli

import (
	"fmt"
	"time"

	"github.com/coldtrack/coldtrack/internal/engine"
	"github.com/coldtrack/coldtrack/internal/store"
)

// openStore opens the SQLite database named by the global --db flag.
// Failures are command errors (exit 2), not domain failures.
func openStore(opts *RootOptions) (*store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("opening database %s", opts.Database), err)
	}
	return st, nil
}

// openEngine opens the store and wraps it in an engine.
func openEngine(opts *RootOptions) (*engine.Engine, *store.Store, error) {
	st, err := openStore(opts)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(st), st, nil
}

// parseTimeFlag parses an RFC 3339 instant, returning def when s is empty.
func parseTimeFlag(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid timestamp %q (want RFC 3339)", s), err)
	}
	return t, nil
}

// domainExit maps an engine error to the right exit code: domain rejections
// (state conflicts, unknown owners, no due window) are exit 1, everything
// else is an infrastructure failure surfaced as-is.
func domainExit(err error) error {
	if err == nil {
		return nil
	}
	if engine.IsStateConflict(err) || engine.IsNotFound(err) {
		return WrapExitError(ExitFailure, "rejected", err)
	}
	return WrapExitError(ExitFailure, "engine failure", err)
}
