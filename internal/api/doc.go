// Package api implements the HTTP REST API and WebSocket stream of VME Thermal.
//
// This package provides:
//   - REST endpoints to list, add, remove and recalibrate sensors
//   - an endpoint to trigger a report cycle outside the polling interval
//   - read access to the report archive when one is configured
//   - a WebSocket hub that streams every report batch as it is produced
//   - bearer-token authentication on mutating routes
//
// # Security
//
// Reads are open. Mutating routes require an operator token issued by
// auth.GenerateToken (see "vmethermal token"). WebSocket clients present a
// token of any role in the "token" query parameter.
//
// # Graceful Degradation
//
// The archive is optional; without it the /reports listing routes answer
// 404 while POST /reports still triggers a cycle.
package api
