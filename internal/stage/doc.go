// Package stage defines the uniform control shape every saga consumer
// applies: decode the delivery, perform one side effect, publish the next
// event, record lineage, acknowledge.
//
// The acknowledgement decision is an explicit value rather than an implicit
// try/catch so the always-consume policy of this system stays visible and
// replaceable. Failure of any side effect aborts the publish and the lineage
// write for that attempt, but the message is still removed from its queue.
package stage
