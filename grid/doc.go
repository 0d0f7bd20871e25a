// Package grid generates one co-simulation workspace per cell of a
// two-dimensional parameter grid and launches it.
//
// Each cell moves through Enumerated, DirectoryCreated, FilesCopied,
// ConfigPatched, ScriptWritten and Launched. Launches do not wait; the
// returned Handles report exit status when the caller asks for it.
package grid
