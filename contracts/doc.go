// Package contracts defines the wire-level frames exchanged with a
// Swarmgate gateway.
//
// All traffic shares one connection and one JSON framing:
//
//   - Requests carry {id, command, args} and are written by the client
//   - Responses carry {id, result} and answer exactly one request
//   - Events carry {event, data} and are pushed by the gateway unprompted
//
// Requests are correlated to responses by the id field, which the client
// generates and the gateway echoes. Frame decodes either inbound shape and
// Kind classifies it by field presence.
package contracts
