// Package blob contains the driven.BlobStorage adapters for uploaded files.
//
//   - local: a directory on the local filesystem
//   - s3: an S3-compatible bucket (AWS S3, MinIO, ...)
package blob
