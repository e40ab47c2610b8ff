// Package lineage persists the workflow audit graph.
//
// Workflows are root nodes; every recorded event hangs off its workflow with
// a BELONGS_TO edge, and causal TRIGGERS edges chain events in processing
// order. Graph writes are an eventually-consistent audit view, never a gate:
// the TRIGGERS edge is best-effort and a missing predecessor leaves a
// disconnected fragment rather than an error.
//
// The Graph store keeps one driver for the process lifetime but scopes every
// operation to its own session, released on all exit paths.
package lineage
