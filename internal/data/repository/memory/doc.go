// Package memory holds map-backed implementations of the repository interfaces.
// The OTP and rate-limit stores double as the single-instance fallback when no
// Redis address is configured; the rest back service tests.
package memory
