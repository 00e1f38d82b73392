// Package daemon hosts the long-running subclip service: the HTTP API,
// background subtitle preparation tasks, and single-instance locking.
package daemon
