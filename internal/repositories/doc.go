// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [KVRepository] : string slots that outlive the process (session credentials, cached identity)
//   - [JobHistoryRepository] : jobs submitted from this machine and their last known status
//
// Tables are created by the embedded migrations run from [shared.OpenStore].
package repositories
