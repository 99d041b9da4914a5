package duplicates

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ericstoecker/anki-translator/internal/models"
	"gorm.io/gorm"
)

// Embedder turns text into a fixed-length vector. Implementations must be
// side-effect free; repeating a call for the same text has to yield a vector
// close enough for the threshold comparison to stay stable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Judge confirms or rejects a suspected duplicate among pre-filtered
// candidate cards.
type Judge interface {
	CheckSemanticDuplicate(ctx context.Context, word string, candidates []models.DuplicateCandidate, sourceLanguage string) (*models.DuplicateResult, error)
}

// Detector answers "does this word already exist in this deck" in two
// stages: an embedding similarity pre-filter over the deck's live cards,
// then a single Judge call over the top-scoring survivors. The pre-filter is
// recall-oriented; the Judge makes the actual call.
type Detector struct {
	db        *gorm.DB
	embedder  Embedder
	judge     Judge
	threshold float64
	topK      int
}

func NewDetector(db *gorm.DB, embedder Embedder, judge Judge, threshold float64, topK int) *Detector {
	return &Detector{
		db:        db,
		embedder:  embedder,
		judge:     judge,
		threshold: threshold,
		topK:      topK,
	}
}

// Check runs the two-stage pipeline. Embeddings missing from cards are
// computed and persisted as a side effect, even when the verdict ends up
// "no duplicate" — repeated checks against a growing deck then only pay for
// the new cards.
func (d *Detector) Check(ctx context.Context, userID, deckID, word, sourceLanguage string) (*models.DuplicateResult, error) {
	var cards []models.Card
	if err := d.db.WithContext(ctx).
		Where("deck_id = ? AND user_id = ? AND status <> ?", deckID, userID, models.CardStatusDeleted).
		Find(&cards).Error; err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return &models.DuplicateResult{IsDuplicate: false}, nil
	}

	wordEmbedding, err := d.embedder.Embed(ctx, word)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding candidate word: %v", models.ErrServiceUnavailable, err)
	}

	var computed []*models.Card
	var candidates []models.DuplicateCandidate
	for i := range cards {
		card := &cards[i]
		if len(card.Embedding) == 0 {
			text := card.SearchText()
			if text == "" {
				continue
			}
			embedding, err := d.embedder.Embed(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("%w: embedding card %s: %v", models.ErrServiceUnavailable, card.ID, err)
			}
			card.Embedding = embedding
			computed = append(computed, card)
		}

		sim := CosineSimilarity(wordEmbedding, card.Embedding)
		if sim >= d.threshold {
			candidates = append(candidates, models.DuplicateCandidate{
				ID:         card.ID,
				Fields:     card.Fields,
				Similarity: sim,
			})
		}
	}

	// Persist newly computed embeddings in one commit before the Judge call
	// is issued. The store transaction must not stay open across that call,
	// and the cache write is kept even when the verdict is negative.
	// UpdateColumn leaves updated_at alone so the sync cursor is unaffected.
	if len(computed) > 0 {
		if err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, card := range computed {
				if err := tx.Model(card).UpdateColumn("embedding", card.Embedding).Error; err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		return &models.DuplicateResult{IsDuplicate: false}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > d.topK {
		candidates = candidates[:d.topK]
	}

	verdict, err := d.judge.CheckSemanticDuplicate(ctx, word, candidates, sourceLanguage)
	if err != nil {
		return nil, fmt.Errorf("%w: duplicate confirmation: %v", models.ErrServiceUnavailable, err)
	}
	if verdict == nil || !verdict.IsDuplicate {
		return &models.DuplicateResult{IsDuplicate: false}, nil
	}
	return verdict, nil
}

// CosineSimilarity is the dot product over the product of L2 norms, in
// [-1, 1]. Vectors with zero norm score 0.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
