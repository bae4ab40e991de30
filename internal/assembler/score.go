package assembler

import (
	"math"

	"aeterna/internal/model"
)

// cosineSimilarity implements spec.md §4.7: returns 0 for empty or
// length-mismatched vectors, or when either magnitude is 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// layerPriorityPosition returns the index of layer in priority, or -1
// if layer does not appear there.
func layerPriorityPosition(layer model.Layer, priority []model.Layer) int {
	for i, l := range priority {
		if l == layer {
			return i
		}
	}
	return -1
}

// relevanceScore implements spec.md §4.7 step 3: cosine similarity
// between query and source embedding when both exist, else a fallback
// based on the layer's priority position.
func relevanceScore(queryEmbedding []float32, source model.SummarySource, priority []model.Layer) float64 {
	if len(queryEmbedding) > 0 && len(source.Embedding) > 0 {
		return cosineSimilarity(queryEmbedding, source.Embedding)
	}
	pos := layerPriorityPosition(source.Layer, priority)
	if pos < 0 {
		return 0.5
	}
	score := 1.0 - float64(pos)*0.1
	if score < 0 {
		return 0
	}
	return score
}
