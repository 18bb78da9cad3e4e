// Package common provides shared utilities used across the gateway:
// logger construction and build/version metadata.
package common
