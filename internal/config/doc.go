// Package config defines the bridge settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the serial device address and baud rate, the
// high-temperature threshold, listen addresses and subscriber tuning.
package config
