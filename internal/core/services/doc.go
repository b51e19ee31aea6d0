// Package services implements the driving port interfaces.
// Services contain the retrieve-filter-generate pipeline and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no external I/O of their own; all network
// access goes through the driven ports.
package services
