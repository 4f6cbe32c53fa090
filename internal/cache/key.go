package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/conneroisu/pugar/pkg/pug"
	"gopkg.in/yaml.v3"
)

// Key derives the cache key for rendering source named name with opts.
// Two renders share a key only when all three inputs are identical.
func Key(opts pug.Options, name string, source []byte) (string, error) {
	// yaml.v3 emits map keys sorted, so Variables hash deterministically.
	encoded, err := yaml.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encoding options: %w", err)
	}

	h := sha256.New()
	h.Write(encoded)
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil)), nil
}
