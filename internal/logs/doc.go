// Package logs reads the run log file for the `logs` command.
//
// Last returns the final lines with bounded memory; Follow polls from an
// offset and emits appended lines until the context ends. Both accept an
// optional substring filter, which is how a single run is isolated by its
// run_id.
package logs
