// Package ws serves interactive device sessions over WebSocket. A session
// holds one device handle and speaks JSON control frames: write, read, ioctl,
// ping. Message payloads travel base64-encoded in the data field, so any byte
// sequence round-trips, not just valid UTF-8. Device errors come back as
// error frames with stable code strings so clients can distinguish
// backpressure from hard failures.
package ws
