// Package faults defines the error taxonomy shared across the service.
//
// Errors are tagged with sentinel kinds so callers can classify failures
// with errors.Is without inspecting message text. The HTTP layer maps
// kinds to status codes; the preparation pipeline uses them to decide
// whether a stage failure is recoverable.
package faults
