// Package alert turns a continuous stream of controller reports into
// discrete, edge-triggered alert events.
//
// Each alert kind is guarded by a latch: it fires once when its condition
// becomes true and re-arms only after the condition has been observed false.
package alert
