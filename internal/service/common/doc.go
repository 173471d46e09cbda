// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper for the monitor service with
// timeouts, and detects the current user@host label sent for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
