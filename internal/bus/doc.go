// Package bus wires darkroom services to the shared AMQP topic exchange.
//
// Routing keys are event type names. Each consumer binds one durable queue to
// exactly one routing key and acknowledges deliveries manually; publishing
// uses persistent delivery so events survive broker restarts. The Bus is
// process-lived: connect once at startup, Close on shutdown.
package bus
