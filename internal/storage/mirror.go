package storage

import "context"

// ArtifactMirror copies finished job artifacts to remote storage.
// Mirroring is best effort; the local job directory stays authoritative.
type ArtifactMirror interface {
	Mirror(ctx context.Context, jobID, name string, data []byte) error
}

// NoopMirror discards everything
type NoopMirror struct{}

func (NoopMirror) Mirror(context.Context, string, string, []byte) error { return nil }

func objectKey(jobID, name string) string {
	return jobID + "/" + name
}
