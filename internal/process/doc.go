// Package process runs the external programs photobox delegates to: the
// capture collaborator and the image diff tool.
//
// Callers depend on the Runner interface so tests can replace process
// execution with an in-memory fake.
package process
