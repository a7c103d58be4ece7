// Package capture is photobox's built-in capture collaborator. It drives
// headless Chrome through go-rod and writes one full-page PNG per target.
//
// The session never calls it directly: it runs as a separate process
// (photobox capture url#size indexPath optionsFile) so any other program
// honoring the same contract can replace it.
package capture
