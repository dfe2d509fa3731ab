// Package dispatch executes tool calls.
//
// A Dispatcher serves one compiled tool. For every call it takes a slot from
// the optional concurrency gate, routes on the selector field, resolves the
// action, validates the remaining arguments in strict mode and runs the
// pre-compiled middleware chain. Destructive actions are serialized per key
// by the chain itself. The result is presented, capped by the egress guard
// and returned as a response; failures are returned as error responses
// rather than Go errors.
package dispatch
