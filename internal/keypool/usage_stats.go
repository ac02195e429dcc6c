package keypool

import (
	"sync"

	"fal-relay/internal/utils"
)

// KeyStats aggregates per-key outcome counters.
type KeyStats struct {
	SuccessCount int64
	FailureCount int64
	LastError    string
}

// UsageStats is the in-memory TaskProcessor backing key accounting.
// Keys are stored masked; the counters exist for observability only and
// never influence selection.
type UsageStats struct {
	mu    sync.Mutex
	stats map[string]*KeyStats
}

// NewUsageStats creates an empty stats processor.
func NewUsageStats() *UsageStats {
	return &UsageStats{stats: make(map[string]*KeyStats)}
}

// Process implements TaskProcessor.
func (s *UsageStats) Process(task *UsageTask) {
	masked := utils.MaskAPIKey(task.Key)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.stats[masked]
	if !ok {
		entry = &KeyStats{}
		s.stats[masked] = entry
	}
	if task.IsSuccess {
		entry.SuccessCount++
	} else {
		entry.FailureCount++
		entry.LastError = utils.TruncateString(task.ErrorMessage, 200)
	}
}

// Snapshot returns a copy of the accumulated counters keyed by masked
// key value.
func (s *UsageStats) Snapshot() map[string]KeyStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]KeyStats, len(s.stats))
	for k, v := range s.stats {
		out[k] = *v
	}
	return out
}
