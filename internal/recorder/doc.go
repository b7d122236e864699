// Package recorder archives the realtime event stream.
//
// A Recorder subscribes to every channel of a realtime.Client and batches
// received envelopes into an append-only TimescaleDB table. Flushes happen
// when the batch fills or on a periodic interval, whichever comes first.
package recorder
