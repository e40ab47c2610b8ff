// Package event defines the wire envelope every pipeline stage exchanges.
//
// An envelope names its event type (which doubles as the routing key), the
// workflow it belongs to, and a stage-specific payload map. The codec does no
// payload schema validation; consumers validate the fields they require.
package event
