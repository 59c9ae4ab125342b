// Package device wraps the serial link to the controller.
//
// Device serializes writes so each framed command reaches the port as one
// unbroken sequence, and pumps raw read chunks to the bridge event loop.
// A failed open is not retried.
package device
