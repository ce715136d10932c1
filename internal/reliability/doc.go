// Package reliability provides the failure-handling primitives used around
// the gateway connection: a circuit breaker for the request write path and
// retry policies for connection establishment.
//
// Neither primitive acts on its own. The bridge only trips the breaker it
// was explicitly given, and dial retries only happen when the client was
// configured with a retry policy; the default behavior everywhere is to
// fail fast and report.
package reliability
