// Package realtime implements the resilient connection client for the
// AgisFL dashboard stream.
//
// The client:
//   - Maintains one long-lived WebSocket to the backend's /ws endpoint
//   - Detects silently-dead connections with application-level ping/pong
//   - Recovers from failures with capped exponential backoff plus jitter
//   - Buffers outbound messages in a bounded queue while disconnected
//   - Routes inbound envelopes to subscribers by type, with a "*" channel
//
// Network-class failures never surface as errors from the public methods;
// collaborators observe them through the "connection" event channel.
package realtime
