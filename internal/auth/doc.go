// Package auth issues and verifies the bearer tokens that guard the
// mutating routes of the HTTP API.
//
// Tokens are HS256 JWTs carrying a subject and a role. Only RoleOperator
// may add, remove or recalibrate sensors and trigger reports; RoleViewer
// tokens are accepted where any authenticated caller is enough.
package auth
