// Package framer reassembles newline-delimited records from an arbitrarily
// fragmented byte stream.
package framer
