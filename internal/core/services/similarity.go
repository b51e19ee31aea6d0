package services

import (
	"strings"
	"sync"

	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// SimilarityAdapter converts a vector store's raw distances into bounded
// [0,1] similarity scores. The conversion depends on the store's distance
// metric, detected once at construction.
type SimilarityAdapter struct {
	metric string

	clampWarn   sync.Once
	unknownWarn sync.Once
}

// NewSimilarityAdapter creates an adapter for the given metric name.
// Recognised metrics are "cosine", "ip" (inner product), "l2" and
// "euclidean". Anything else is treated as cosine.
func NewSimilarityAdapter(metric string) *SimilarityAdapter {
	return &SimilarityAdapter{metric: strings.ToLower(strings.TrimSpace(metric))}
}

// Metric returns the metric name the adapter was built for.
func (a *SimilarityAdapter) Metric() string {
	return a.metric
}

// Similarity converts one raw distance into a similarity in [0,1].
func (a *SimilarityAdapter) Similarity(distance float64) float64 {
	switch a.metric {
	case "l2", "euclidean":
		d := distance
		if d < 0 {
			d = 0
		}
		return 1 / (1 + d)
	case "cosine", "ip", "inner-product", "innerproduct":
		return a.cosineLike(distance)
	default:
		a.unknownWarn.Do(func() {
			logger.Warn("Unknown distance metric %q, treating as cosine", a.metric)
		})
		return a.cosineLike(distance)
	}
}

// cosineLike maps distance to 1-distance and clamps to [0,1]. A distance
// above 1 means the store reports an unexpected scale; warn once.
func (a *SimilarityAdapter) cosineLike(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		a.clampWarn.Do(func() {
			logger.Warn("Similarity clamped to 0 (distance %.4f > 1); store may use an unexpected distance scale", distance)
		})
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
