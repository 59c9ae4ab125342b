// Package control implements the operator commands of alarm-bridge-ctl:
// sending controller commands, watching the live message stream, and listing
// serial ports on the local host.
package control
