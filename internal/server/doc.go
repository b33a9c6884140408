// Package server is the composition root: it constructs the process-wide
// message queue, binds the device adapter over it, and registers the HTTP and
// WebSocket surfaces with their middleware.
package server
