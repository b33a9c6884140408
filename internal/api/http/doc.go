// Package http exposes the message device over REST endpoints, translating
// device errors to HTTP status codes: 413 for oversized messages, 503 for a
// full queue, 204 for an empty one, 400 for transfer faults, 501 for ioctl.
package http
