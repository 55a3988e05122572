// Package store provides SQLite-backed persistence for the compliance
// engine: schedule rules, window monitors, occurrence records, and the
// inbound event audit log.
//
// Every write path is idempotent or conditional. Occurrence creation uses
// ON CONFLICT(owner_id, target_key) DO NOTHING; status transitions are
// UPDATEs conditioned on the current status, so concurrent operations on
// the same occurrence resolve to whichever write lands first - the loser
// affects zero rows and is a no-op, never a corruption.
package store
