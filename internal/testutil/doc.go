// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing model manifests, seeded asset
// sources and poses. These helpers are intentionally minimal. They are not
// intended for production usage.
package testutil
