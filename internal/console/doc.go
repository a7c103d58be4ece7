// Package console prints photobox's progress for humans: phase banners and
// one line per target outcome. Output is colored on a terminal and plain
// when redirected.
package console
