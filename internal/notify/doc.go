// Package notify is the downstream notification collaborator of the bridge.
//
// A Notifier consumes a hub subscription and hands alert events and system
// errors to a Sender. Edge detection already happened upstream; the notifier
// only adds an optional minimum interval between two notifications of the
// same alert kind.
package notify
