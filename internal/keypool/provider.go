// Package keypool manages the outbound credential pool: random key
// selection for each request and asynchronous usage accounting.
package keypool

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	app_errors "fal-relay/internal/errors"
	"fal-relay/internal/utils"
)

// KeyProvider selects outbound keys from a fixed pool. Selection is
// uniformly random with no reservation or per-key rate limiting.
type KeyProvider struct {
	keys []string
	rnd  *rand.Rand
	mu   sync.Mutex

	usage *WorkerPool
}

// NewKeyProvider creates a provider over the given pool. The usage
// worker pool may be nil when accounting is not wanted.
func NewKeyProvider(keys []string, usage *WorkerPool) *KeyProvider {
	return &KeyProvider{
		keys:  keys,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		usage: usage,
	}
}

// SelectKey returns a random key from the pool.
func (p *KeyProvider) SelectKey() (string, error) {
	if len(p.keys) == 0 {
		return "", app_errors.NewAPIError(app_errors.ErrInternalServer,
			"Server configuration error: no fal API keys available. Check the FAL_API_KEYS environment variable.")
	}
	p.mu.Lock()
	key := p.keys[p.rnd.Intn(len(p.keys))]
	p.mu.Unlock()
	return key, nil
}

// Size returns the number of configured keys.
func (p *KeyProvider) Size() int {
	return len(p.keys)
}

// ReportResult records the outcome of an upstream call made with key.
// Accounting is asynchronous and never blocks the request path.
func (p *KeyProvider) ReportResult(key string, success bool, errorMessage string) {
	if p.usage == nil {
		return
	}
	p.usage.Submit(&UsageTask{
		Key:          key,
		IsSuccess:    success,
		ErrorMessage: errorMessage,
		Timestamp:    time.Now(),
	})
	if !success {
		logrus.WithFields(logrus.Fields{
			"key":   utils.MaskAPIKey(key),
			"error": utils.TruncateString(errorMessage, 200),
		}).Debug("Recorded upstream failure for key")
	}
}
