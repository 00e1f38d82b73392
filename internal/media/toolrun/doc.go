// Package toolrun executes external media tools with fully specified
// argument vectors.
//
// Arguments are always passed as discrete argv entries; nothing is ever
// routed through a shell, so filenames cannot inject options or commands.
// Failures are classified as tool-missing (binary not on PATH) or
// tool-failed (non-zero exit, stderr attached) via the faults package.
package toolrun
