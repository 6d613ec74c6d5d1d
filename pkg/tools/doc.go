// Package tools provides command execution helpers handed to backends.
//
// Ownership boundary:
// - local command execution
// - remote command execution over ssh
package tools
