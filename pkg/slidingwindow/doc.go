// Package slidingwindow implements a rolling wall-clock window over recently
// produced blocks of a single network and derives throughput rates from it.
//
// Terminology
//   - Window: the trailing WindowLength seconds, measured against the wall clock.
//     It is bounded by elapsed time, never by record count.
//   - Record: the per-block figures the window keeps (number, gas used, optional
//     size in bytes, chain timestamp and transaction count).
//   - Snapshot: a point-in-time rate estimate computed on demand and never cached.
//
// Main components
//   - Window: a deque of records in arrival order, a companion set of block
//     numbers for deduplication, and running totals of gas, transactions and
//     bytes. Totals are updated in lockstep with the deque: added on ingest,
//     subtracted on eviction, never recomputed.
//
// Rate semantics
//
// Snapshot divides each running total by the time elapsed between now and the
// oldest retained record. When no new blocks arrive the divisor keeps growing,
// so the reported rates decay towards zero until the records fall out of the
// window. Empty windows and zero divisors report zero rates.
//
// Usage
//  1. Construct a Window with NewWindow(label) (optionally WithClock for tests).
//  2. Call Ingest for every fetched block, in block number order.
//  3. Call Snapshot(now) once per poll tick and publish the result.
//
// A Window is not safe for concurrent use. It is owned by exactly one streamer.
package slidingwindow
