// Package database stores ranking runs in SQLite.
//
// Each run is kept twice: as the full JSON report in the runs table, and as
// one row per page and method in the ranks table. The second form lets the
// history command follow a single page across runs without decoding every
// report.
//
// The database lives in a single file under the XDG data directory and is
// opened through modernc.org/sqlite, which needs no cgo.
package database
