// Package artifact provides sources of raw asset bytes for the asset loader.
//
// The AssetSource contract lives in core. This package holds the in-memory
// source used by tests and demos, and Open, which selects between it, an
// asset bundle directory (artifact/fs) and an S3 compatible bucket
// (artifact/s3) from configuration.
package artifact
