// Package ws serves bridge subscribers over WebSocket.
//
// Every connection is one hub subscription. The server pushes status, alert
// and error envelopes; the client sends command envelopes and receives one
// acknowledgement per command.
package ws
