// Package breaks holds the value types that describe which API breaks a
// project has accepted: versions, module identities, accepted breaks, the
// per-module index and the collections that group breaks under a shared
// justification and version boundary.
//
// Every type here is an immutable value. Operations that change logical
// content return a new value and leave their inputs untouched.
package breaks
