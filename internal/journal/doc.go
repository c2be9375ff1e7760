// Package journal optionally persists tunnel activity (packets sent,
// received, dropped) to SQLite for diagnostics. It never stores
// consumption offsets or queue state; restarts always begin fresh.
package journal
