// Package storage persists per-subscriber tracking state and active
// subscriptions across restarts.
//
// Two drivers exist: "sqlite" (default) and "file", the latter kept
// byte-compatible with the legacy per-user CSV layout so old databases
// can be carried over.
package storage
