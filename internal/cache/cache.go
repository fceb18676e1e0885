package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

// Cache is the interface shared by the memory, disk and layered caches.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a resource name.
func Key(name string) string {
	hash := sha256.Sum256([]byte(name))
	return "toponym:v1:" + hex.EncodeToString(hash[:])
}

// HashFiles returns a hex digest over the contents of the given files, in
// order. Disk-cached derivations are revalidated against the hash of their
// raw inputs instead of being trusted forever.
func HashFiles(paths ...string) (string, error) {
	h := sha256.New()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("hash source %s: %w", path, err)
		}
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", fmt.Errorf("hash source %s: %w", path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
