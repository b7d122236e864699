// Package database manages the PostgreSQL/TimescaleDB connection used by
// the event recorder.
package database
