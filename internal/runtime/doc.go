// Package runtime owns the process lifecycle shared by every darkroom
// service: single-instance locking, signal handling, and stage consumption.
package runtime
