// Package api defines the core types shared by every backend pipeline of
// the modelstream client.
//
// The package performs no I/O. It provides the canonical request ([Prompt]),
// the unit of model output ([ResponseItem]), the normalized event emitted on
// every stream ([ResponseEvent]), the error taxonomy surfaced to callers, and
// ID generation for backends that do not assign turn identifiers.
//
// Core types:
//   - [Prompt]: caller-supplied request, immutable for the request lifetime
//   - [ResponseItem]: polymorphic output unit (message, reasoning, function_call, ...)
//   - [ResponseEvent]: OutputItemDone or Completed
//   - [EnvVarError], [TransportError], [UnexpectedStatusError], [RetryLimitError], [StreamError]
//
// Only the "type" and "id" fields of an item drive control flow. Items of a
// kind this package does not model are preserved as raw JSON so they can be
// round-tripped back to the backend unchanged.
package api
