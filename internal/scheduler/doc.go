// Package scheduler multiplexes Bot API calls across a pool of bot
// tokens, each under an independent rate-limit cooldown.
//
// Producers enqueue calls and get a Handle back; the dispatch loop
// assigns each call to the first eligible credential in round-robin
// order and performs it in its own goroutine, so a slow call never
// blocks dispatch to other credentials. The scheduler also owns the
// getUpdates long-poll loop and the monotonic consumption offset.
//
// Single-writer discipline: only the dispatch loop touches the
// credential pool and the round-robin cursor, and only the poll loop
// advances the offset.
package scheduler
