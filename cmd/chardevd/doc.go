// Command chardevd runs the message device service: a bounded in-memory FIFO
// of byte messages exposed over HTTP and WebSocket with character-device
// semantics (one message per read, immediate backpressure, no blocking).
package main
