// Package storage groups the ports.PostRepository implementations:
//
//   - memory: process-local map, used by tests and the "memory" driver
//   - sqlstore: database/sql over sqlite3 or postgres
//
// storagetest holds the behaviour every implementation must share.
package storage
