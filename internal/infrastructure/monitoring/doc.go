// Package monitoring provides Prometheus metrics for the device service.
//
// Each Metrics instance owns its registry, so construction is repeatable in
// tests. Queue operations are counted by outcome (ok, full, empty, too_large,
// fault) alongside a depth gauge; HTTP traffic is recorded by a gin middleware.
package monitoring
