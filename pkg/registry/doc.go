// Package registry declares tools and their actions and compiles them into
// immutable execution contexts.
//
// A Tool collects actions (optionally namespaced in groups), a common schema
// and middleware. Compile seals it and produces an ExecutionContext holding,
// per action key, the merged strict schema and the middleware chain composed
// once around the handler. Destructive actions are routed through the tool's
// mutation serializer.
package registry
