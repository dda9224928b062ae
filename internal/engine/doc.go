// Package engine provides the core build orchestration for Transmute.
// The implementation is split across multiple files for clarity:
// - phases.go: static phase scheduling over the ordered plugin list
// - dispatch.go: worker pool and per-file task dispatcher
// - orchestrator.go: the per-run state machine and summary assembly
// - safegroup.go: panic-safe concurrency utilities
package engine
