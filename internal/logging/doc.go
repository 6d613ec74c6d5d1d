// Package logging configures the process-wide zerolog logger for runtime and
// test profiles.
package logging
