// Package storage provides the binary object store the resume upload flow
// writes artifacts to. Objects are content-addressed by owner and timestamp;
// orphaned objects from failed record writes are harmless and never cleaned
// up by this core.
package storage

import "context"

// BlobStore is the object storage collaborator: upload bytes under a key and
// resolve the key to a publicly retrievable URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, contentType string, data []byte) error
	PublicURL(key string) string
}
