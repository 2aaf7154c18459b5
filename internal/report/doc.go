// Package report delivers measured report batches to their consumers.
//
// The thermal registry writes each batch as YAML to its sink; this package
// carries the same batch further:
//
//   - OpenFile gives the registry a size-rotated, append-only report file
//   - MQTTPublisher publishes the batch and retained per-sensor state
//   - InfluxPublisher writes one time-series point per record
//   - Archive keeps batches in SQLite for the HTTP API
//
// Fanout runs any set of publishers concurrently and joins their errors, so
// one unreachable broker never stops the archive from being written.
package report
