// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities (Setup, ParseLogLevel),
//   - key-value helpers (InfoKV, WarnKV, ErrorKV, DebugKV).
//
// The bridge, its transports and the notifier accept a context and extract
// the logger from it, so per-connection fields follow every log line.
package logger
