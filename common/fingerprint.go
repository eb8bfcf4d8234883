package common

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"

	"gocloud.dev/blob"
)

// FingerprintObject generates a SHA-1 hash of an object stored in a
// blob.Bucket instance. Fingerprints identify scenes and exported
// composites across runs.
func FingerprintObject(ctx context.Context, bucket *blob.Bucket, path string) (string, error) {

	fh, err := bucket.NewReader(ctx, path, nil)

	if err != nil {
		return "", fmt.Errorf("Failed to create reader for '%s', %w", path, err)
	}

	defer fh.Close()

	h := sha1.New()

	_, err = io.Copy(h, fh)

	if err != nil {
		return "", fmt.Errorf("Failed to hash '%s', %w", path, err)
	}

	hash := h.Sum(nil)
	return hex.EncodeToString(hash[:]), nil
}
