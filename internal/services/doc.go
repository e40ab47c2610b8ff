// Package services defines the shared error taxonomy for darkroom components.
//
// Sentinel markers classify failures the same way everywhere: validation
// problems reject intake requests, transient external failures are logged and
// acknowledged by stage handlers, and malformed envelopes name undecodable
// messages. Wrap tags an error with its marker plus component/operation
// context so errors.Is checks and log lines stay consistent across stages.
package services
