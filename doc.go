// Package dealAuth is the authentication and session layer of the meal-deal
// marketplace client. A [Manager] wraps a remote auth and profile service,
// gates sign-in on the Customer or Partner role stored in the user's profile
// row, and publishes session snapshots to subscribers.
//
// Every Manager operation brackets its work with the Loading flag and ends in
// exactly one published transition carrying its outcome. Failures are
// reported through a small taxonomy ([ErrInvalidEmail], [ErrWeakPassword],
// [ErrInvalidCredentials], [RoleMismatchError], [RemoteError],
// [NetworkError], ...) that [KindOf] classifies and [Message] renders for the
// user. Raw transport errors never reach [State].
//
// # Architecture boundaries
//
// dealAuth is the public surface. It exposes [Manager], [Builder], [Config]
// and value types. The multi-step remote sequences live in internal/flows,
// audit dispatch in internal/audit, counters in internal/metrics. The remote
// contract is package remote; package backend is a reference implementation
// of that contract used by tests, the CLI and the demo.
//
// # What this package must NOT do
//
//   - Hold global state. Construct one Manager per running app with [New].
//   - Surface session restore failures to the user.
//   - Leave a remote session alive after a role mismatch.
package dealAuth
