// Package observability holds the prometheus collectors and gin middleware
// shared by the host's dispatch path and status API.
package observability
