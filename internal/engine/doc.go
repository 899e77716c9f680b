// Package engine contains the Memory Match state machine.
//
// A Game owns one board at a time: it builds and shuffles the deck, accepts
// flips, schedules the delayed resolution of every selected pair and detects
// completion. Reinitializing a Game replaces the board wholesale and
// invalidates any resolution still in flight from the previous board.
package engine
