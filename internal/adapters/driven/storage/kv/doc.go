// Package kv builds driven ports on top of any driven.RecordStore, so the
// SQLite, Redis and in-memory backends share one implementation of each.
package kv
