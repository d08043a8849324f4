// Package mzn orchestrates the MiniZinc toolchain.
//
// A run compiles a constraint model (plus optional data) into
// flattened-constraints and output-spec files, invokes a pluggable solver
// backend on the flattened constraints, and parses the reconstructed
// solution stream into discrete solution blocks. Generated artifacts are
// removed on every exit path unless the caller asks to keep them.
//
// The package does not solve constraints itself and does not validate model
// semantics; both belong to the external tools it drives.
package mzn
