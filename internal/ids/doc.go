// Package ids defines the integer handles used as keys throughout assembly
// and execution: reactor ids, reaction ids and trigger ids.
//
// Ids are assigned once, in declaration order, while a program is
// assembled. They carry no lifecycle of their own and are only meaningful
// within the program that assigned them.
package ids
