// Package depgraph builds the immutable dependency graph of an assembled
// reactor program.
//
// Nodes live in an arena and are addressed by integer index. Triggers
// (ports, bank channels, actions, timers, startup and shutdown) and
// reactions are both nodes. The edges are:
//
//   - trigger -> reaction for triggers and uses
//   - reaction -> trigger for effects
//   - port -> port for bindings
//   - reaction -> reaction for priority within a reactor and for
//     serialization of conflicting reactions
//
// Only paths that stay inside one tag order reactions: a reaction that
// writes a port precedes every reaction that reads it, directly or through
// bindings. Actions always cross tags, so they never add precedence.
//
// Build computes levels as the longest path over that precedence relation.
// Reactions sharing a level have no path between them and may run
// concurrently. Two same-level reactions that would touch the same port or
// action are serialized in declaration order before the graph is frozen.
// A cycle among ports and reactions is an assembly error.
package depgraph
