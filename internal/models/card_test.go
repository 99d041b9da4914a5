package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptOnlyFromDraft(t *testing.T) {
	tests := []struct {
		name    string
		status  CardStatus
		wantErr bool
	}{
		{"draft", CardStatusDraft, false},
		{"pending_sync", CardStatusPendingSync, true},
		{"synced", CardStatusSynced, true},
		{"modified", CardStatusModified, true},
		{"deleted", CardStatusDeleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &Card{ID: "c1", Status: tt.status}
			err := card.Accept()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidState)
				assert.Equal(t, tt.status, card.Status, "a failed accept must leave the status unchanged")
			} else {
				require.NoError(t, err)
				assert.Equal(t, CardStatusPendingSync, card.Status)
			}
		})
	}
}

func TestConfirmFromAnyState(t *testing.T) {
	for _, status := range []CardStatus{CardStatusDraft, CardStatusPendingSync, CardStatusSynced, CardStatusDeleted} {
		card := &Card{ID: "c1", Status: status}
		card.Confirm(12345)
		assert.Equal(t, CardStatusSynced, card.Status)
		require.NotNil(t, card.AnkiNoteID)
		assert.Equal(t, int64(12345), *card.AnkiNoteID)
	}
}

func TestConfirmIsRepeatable(t *testing.T) {
	card := &Card{ID: "c1", Status: CardStatusPendingSync}
	card.Confirm(111)
	card.Confirm(111)
	assert.Equal(t, CardStatusSynced, card.Status)
	assert.Equal(t, int64(111), *card.AnkiNoteID)
}

func TestMarkDeletedIdempotent(t *testing.T) {
	card := &Card{ID: "c1", Status: CardStatusSynced}
	card.MarkDeleted()
	card.MarkDeleted()
	assert.Equal(t, CardStatusDeleted, card.Status)
}

func TestSearchTextStableOrder(t *testing.T) {
	card := &Card{Fields: FieldMap{
		"Front":   "to have",
		"Back":    "haben",
		"Example": "",
	}}
	// Field-name order, empty values dropped.
	assert.Equal(t, "haben to have", card.SearchText())
	assert.Equal(t, card.SearchText(), card.SearchText())
}
