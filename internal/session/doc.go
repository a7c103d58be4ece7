// Package session orchestrates a photobox run: it prepares the index path,
// captures every target, diffs the captures against the previous session
// and writes the report.
//
// Capture and diff are separate phases. Diffs are only dispatched after
// every capture has resolved, successfully or not.
package session
