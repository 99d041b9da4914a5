package duplicates

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testUser = "user-1"

// -------- test fakes --------

type fakeEmbedder struct {
	vectors map[string][]float64
	calls   []string
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, text)
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

type fakeJudge struct {
	result *models.DuplicateResult
	err    error

	calls      int
	words      []string
	candidates [][]models.DuplicateCandidate
}

func (f *fakeJudge) CheckSemanticDuplicate(ctx context.Context, word string, candidates []models.DuplicateCandidate, sourceLanguage string) (*models.DuplicateResult, error) {
	f.calls++
	f.words = append(f.words, word)
	f.candidates = append(f.candidates, candidates)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// -------- helpers --------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Card{}))
	return db
}

func createCard(t *testing.T, db *gorm.DB, fields models.FieldMap, embedding []float64) models.Card {
	t.Helper()
	card := models.Card{
		UserID:     testUser,
		DeckID:     "deck-1",
		NoteTypeID: "nt-1",
		Fields:     fields,
		Status:     models.CardStatusSynced,
		Source:     models.CardSourceAnki,
		Embedding:  embedding,
	}
	require.NoError(t, db.Create(&card).Error)
	return card
}

func strp(s string) *string { return &s }

// -------- tests --------

func TestEmptyDeckShortCircuits(t *testing.T) {
	db := newTestDB(t)
	embedder := &fakeEmbedder{}
	judge := &fakeJudge{}
	detector := NewDetector(db, embedder, judge, 0.6, 10)

	result, err := detector.Check(context.Background(), testUser, "deck-1", "dog", "English")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Zero(t, judge.calls)
	assert.Empty(t, embedder.calls)
}

func TestBelowThresholdSkipsJudge(t *testing.T) {
	db := newTestDB(t)
	createCard(t, db, models.FieldMap{"Front": "cat"}, []float64{1, 0, 0})
	embedder := &fakeEmbedder{vectors: map[string][]float64{"dog": {0, 1, 0}}}
	judge := &fakeJudge{}
	detector := NewDetector(db, embedder, judge, 0.6, 10)

	result, err := detector.Check(context.Background(), testUser, "deck-1", "dog", "English")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Zero(t, judge.calls, "no candidate above threshold means no language-model call")
}

func TestJudgeCalledOnceWithTopCandidatesDescending(t *testing.T) {
	db := newTestDB(t)
	low := createCard(t, db, models.FieldMap{"Front": "low"}, []float64{0.8, 0.6, 0})
	high := createCard(t, db, models.FieldMap{"Front": "high"}, []float64{1, 0, 0})
	mid := createCard(t, db, models.FieldMap{"Front": "mid"}, []float64{0.9, 0.4358898943540674, 0})
	createCard(t, db, models.FieldMap{"Front": "far"}, []float64{0, 1, 0})

	embedder := &fakeEmbedder{vectors: map[string][]float64{"word": {1, 0, 0}}}
	judge := &fakeJudge{result: &models.DuplicateResult{
		IsDuplicate:   true,
		DuplicateOfID: strp(high.ID),
		Explanation:   "same lemma",
	}}
	detector := NewDetector(db, embedder, judge, 0.6, 2)

	result, err := detector.Check(context.Background(), testUser, "deck-1", "word", "English")
	require.NoError(t, err)

	require.Equal(t, 1, judge.calls)
	assert.Equal(t, []string{"word"}, judge.words)
	candidates := judge.candidates[0]
	require.Len(t, candidates, 2, "top-K truncation")
	assert.Equal(t, high.ID, candidates[0].ID)
	assert.Equal(t, mid.ID, candidates[1].ID)
	assert.Greater(t, candidates[0].Similarity, candidates[1].Similarity)
	for _, c := range candidates {
		assert.NotEqual(t, low.ID, c.ID)
	}

	assert.True(t, result.IsDuplicate)
	require.NotNil(t, result.DuplicateOfID)
	assert.Equal(t, high.ID, *result.DuplicateOfID)
	assert.Equal(t, "same lemma", result.Explanation)
}

func TestJudgeNegativeVerdictMeansNoDuplicate(t *testing.T) {
	db := newTestDB(t)
	createCard(t, db, models.FieldMap{"Front": "to have", "Back": "haben"}, []float64{1, 0, 0})

	embedder := &fakeEmbedder{vectors: map[string][]float64{"have": {0.95, 0.3122498999199199, 0}}}
	judge := &fakeJudge{result: &models.DuplicateResult{
		IsDuplicate: false,
		Explanation: "different concept",
	}}
	detector := NewDetector(db, embedder, judge, 0.6, 10)

	result, err := detector.Check(context.Background(), testUser, "deck-1", "have", "English")
	require.NoError(t, err)
	assert.Equal(t, 1, judge.calls)
	assert.False(t, result.IsDuplicate)
	assert.Nil(t, result.DuplicateOfID)
}

func TestPositiveVerdictReturnedVerbatim(t *testing.T) {
	db := newTestDB(t)
	card := createCard(t, db, models.FieldMap{"Front": "to have", "Back": "haben"}, []float64{1, 0, 0})

	embedder := &fakeEmbedder{vectors: map[string][]float64{"have": {1, 0, 0}}}
	judge := &fakeJudge{result: &models.DuplicateResult{
		IsDuplicate:   true,
		DuplicateOfID: strp(card.ID),
		Explanation:   "'have' is the infinitive of the existing card 'to have'",
	}}
	detector := NewDetector(db, embedder, judge, 0.6, 10)

	result, err := detector.Check(context.Background(), testUser, "deck-1", "have", "English")
	require.NoError(t, err)
	assert.Equal(t, judge.result, result)
}

func TestMissingEmbeddingsComputedAndPersisted(t *testing.T) {
	db := newTestDB(t)
	card := createCard(t, db, models.FieldMap{"Front": "cat", "Back": "Katze"}, nil)

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"dog":       {0, 1, 0},
		"Katze cat": {1, 0, 0}, // SearchText: field-name order
	}}
	judge := &fakeJudge{}
	detector := NewDetector(db, embedder, judge, 0.6, 10)

	result, err := detector.Check(context.Background(), testUser, "deck-1", "dog", "English")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)

	// The cache write sticks even though the verdict was "no duplicate".
	var stored models.Card
	require.NoError(t, db.First(&stored, "id = ?", card.ID).Error)
	assert.Equal(t, []float64{1, 0, 0}, stored.Embedding)
}

func TestCachedEmbeddingsNotRecomputed(t *testing.T) {
	db := newTestDB(t)
	createCard(t, db, models.FieldMap{"Front": "cat"}, []float64{1, 0, 0})

	embedder := &fakeEmbedder{vectors: map[string][]float64{"dog": {0, 1, 0}}}
	detector := NewDetector(db, embedder, &fakeJudge{}, 0.6, 10)

	_, err := detector.Check(context.Background(), testUser, "deck-1", "dog", "English")
	require.NoError(t, err)
	assert.Equal(t, []string{"dog"}, embedder.calls, "only the candidate word needs embedding")
}

func TestDeletedCardsIgnored(t *testing.T) {
	db := newTestDB(t)
	card := createCard(t, db, models.FieldMap{"Front": "dog"}, []float64{1, 0, 0})
	card.MarkDeleted()
	require.NoError(t, db.Save(&card).Error)

	embedder := &fakeEmbedder{vectors: map[string][]float64{"dog": {1, 0, 0}}}
	judge := &fakeJudge{}
	detector := NewDetector(db, embedder, judge, 0.6, 10)

	result, err := detector.Check(context.Background(), testUser, "deck-1", "dog", "English")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Zero(t, judge.calls)
}

func TestEmbedderFailureSurfaces(t *testing.T) {
	db := newTestDB(t)
	createCard(t, db, models.FieldMap{"Front": "cat"}, []float64{1, 0, 0})

	embedder := &fakeEmbedder{err: errors.New("connection refused")}
	detector := NewDetector(db, embedder, &fakeJudge{}, 0.6, 10)

	_, err := detector.Check(context.Background(), testUser, "deck-1", "dog", "English")
	require.ErrorIs(t, err, models.ErrServiceUnavailable)
}

func TestJudgeFailureSurfaces(t *testing.T) {
	db := newTestDB(t)
	createCard(t, db, models.FieldMap{"Front": "cat"}, []float64{1, 0, 0})

	embedder := &fakeEmbedder{vectors: map[string][]float64{"cat": {1, 0, 0}}}
	judge := &fakeJudge{err: errors.New("overloaded")}
	detector := NewDetector(db, embedder, judge, 0.6, 10)

	_, err := detector.Check(context.Background(), testUser, "deck-1", "cat", "English")
	require.ErrorIs(t, err, models.ErrServiceUnavailable)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float64{1, 1}))

	// inclusive threshold boundary
	sim := CosineSimilarity([]float64{1, 1}, []float64{1, 0})
	assert.InDelta(t, 1/math.Sqrt2, sim, 1e-9)
	assert.True(t, sim >= 1/math.Sqrt2)
}
