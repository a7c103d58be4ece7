// Package database keeps the history of photobox sessions in SQLite
// (modernc.org/sqlite, no cgo).
//
// Every run overwrites index.html and the diff images; the history
// database is what remains of earlier sessions.
package database
