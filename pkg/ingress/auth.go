package ingress

import (
	"crypto/sha256"
	"net/http"
	"strings"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/metrics"
)

// KeySet is the process-wide immutable set of accepted API keys. Keys are
// stored as SHA-256 digests, so membership tests never compare raw key
// material and cost the same regardless of set size.
type KeySet struct {
	digests map[[sha256.Size]byte]struct{}
}

// NewKeySet builds the set from the configured raw keys.
func NewKeySet(keys []string) *KeySet {
	set := &KeySet{digests: make(map[[sha256.Size]byte]struct{}, len(keys))}
	for _, key := range keys {
		set.digests[sha256.Sum256([]byte(key))] = struct{}{}
	}
	return set
}

// Contains reports whether the key is accepted.
func (s *KeySet) Contains(key string) bool {
	_, ok := s.digests[sha256.Sum256([]byte(key))]
	return ok
}

// extractAPIKey pulls the key from the request. The Authorization header
// wins when both header styles are present.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		return ""
	}
	return r.Header.Get("X-API-Key")
}

// Authenticate rejects requests that do not present a known API key.
func Authenticate(keys *KeySet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				metrics.AuthFailures.Inc()
				WriteError(w, r, apierr.Unauthorized("Missing API key"))
				return
			}
			if !keys.Contains(key) {
				metrics.AuthFailures.Inc()
				WriteError(w, r, apierr.Unauthorized("Invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
