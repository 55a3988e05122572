// Package engine implements the recurrence-driven compliance operations:
// expanding schedule definitions into REQUIRED occurrences, reconciling
// inbound events against them, sweeping overdue occurrences to MISSED, and
// applying authorized overrides.
//
// Every operation is a short, bounded batch over shared persistent state.
// Correctness under concurrency comes from two layers: a logical per-owner
// lock around read-modify-write sequences, and conditional status writes in
// the store that make the loser of any remaining race a no-op.
//
// The engine never reads the wall clock; callers pass "now" explicitly.
package engine
