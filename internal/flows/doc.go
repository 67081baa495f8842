// Package flows contains the multi-step remote sequences behind the Manager
// operations.
//
// Each Run function accepts a typed dependency struct and returns a result
// value describing how far the sequence got. Flows never touch session state:
// mapping results onto the error taxonomy and publishing the transition stays
// with the Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import dealAuth (to avoid import cycles).
//   - Perform I/O except through the dependencies it is handed.
package flows
