// Package workspace manages the on-disk state of photobox sessions.
//
// It knows where every artifact lives below the index path (Layout),
// archives the previous session's captures before a new one starts
// (Prepare), and reads and writes the session timestamp markers.
package workspace
