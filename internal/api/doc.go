// Package api implements the intake surface: workflow admission over HTTP
// and status queries against the lineage graph.
package api
