// Package registry persists transform definitions.
//
// Definitions are stored as JSON under xform/{name} in the same Pebble
// database as the event logs, so a restarted server can redeploy every
// transform it was running.
package registry
