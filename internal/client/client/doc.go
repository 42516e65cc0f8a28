// Package client contains the client-side building blocks for talking to
// the dtodo backend.
//
// It provides the transport-agnostic Client contract, a gRPC implementation
// (GRPCClient) that attaches the access token to every call, refreshes it
// transparently when the server reports "token expired" and maps status
// codes to the sentinel errors in this package, and the bootstrap of the
// local SQLite database (InitDatabase, RunMigrations).
package client
