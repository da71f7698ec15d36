// Package store persists operator settings and run-all history in Redis.
// Secrets and tokens are never written
package store
