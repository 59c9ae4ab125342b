// Package common holds helpers shared by the bridge CLIs.
//
// It provides a lightweight BridgeService gRPC client with call timeouts and
// a helper to detect the current operator (username@hostname) for the audit
// trail of commands.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
