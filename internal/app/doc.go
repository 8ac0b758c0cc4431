// Package app wires the workflow loader, graph builder, root source,
// scheduler and publisher into one run, and owns the process-level
// concerns: logging, the health endpoint and the run summary.
package app
