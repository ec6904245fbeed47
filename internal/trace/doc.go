// Package trace records what a scheduler did, tag by tag.
//
// A trace is the sequence of events a run produced: the tags processed, the
// reactions executed, the ports set and the actions scheduled. The
// scheduler emits events in an order that depends only on the program and
// its inputs, never on how many workers executed a level, so two runs of
// the same program can be compared event by event or by digest.
//
// Event times are stamps relative to the start of the run. Two simulated
// runs of the same program therefore produce identical traces even though
// they started at different wall-clock instants.
//
// Digests are SHA-256 over RFC 8785 style canonical JSON, with NFC
// normalized strings and a versioned domain prefix.
package trace
