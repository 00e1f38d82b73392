// Package prepare coordinates subtitle preparation runs: cache checks
// against the store, single-flight deduplication per video, and
// persistence of the outcome.
package prepare
