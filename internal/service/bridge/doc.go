// Package bridge runs the alarm-bridge process: it opens the controller,
// drives the single event loop that frames, decodes and de-duplicates device
// output into hub messages, and serves the WebSocket and gRPC subscribers
// that relay operator commands back to the device.
package bridge
