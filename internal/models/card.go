package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CardStatus string

const (
	CardStatusDraft       CardStatus = "draft"        // created in the app, user hasn't accepted it yet
	CardStatusPendingSync CardStatus = "pending_sync" // accepted, waiting for Anki to pull it
	CardStatusSynced      CardStatus = "synced"
	CardStatusModified    CardStatus = "modified" // reserved for local edits after sync; no operation sets it yet
	CardStatusDeleted     CardStatus = "deleted"
)

type CardSource string

const (
	CardSourceApp  CardSource = "app"  // created via the phone app
	CardSourceAnki CardSource = "anki" // created in Anki, pushed to the backend
)

// FieldMap holds a card's field values keyed by the note type's field names.
type FieldMap map[string]string

type Card struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	AnkiNoteID *int64 `gorm:"uniqueIndex:uq_cards_user_anki_note" json:"anki_note_id"`
	UserID     string `gorm:"size:36;index;uniqueIndex:uq_cards_user_anki_note" json:"-"`
	DeckID     string `gorm:"size:36;index" json:"deck_id"`
	NoteTypeID string `gorm:"size:36" json:"note_type_id"`

	Fields FieldMap `gorm:"serializer:json" json:"fields"`
	Tags   string   `json:"tags"`

	Status CardStatus `gorm:"size:20" json:"status"`
	Source CardSource `gorm:"size:10" json:"source"`

	SourceWord     *string `gorm:"size:500" json:"source_word"`
	SourceLanguage *string `gorm:"size:50" json:"source_language"`
	TargetLanguage *string `gorm:"size:50" json:"target_language"`

	Embedding []float64 `gorm:"serializer:json" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = CardStatusDraft
	}
	if c.Source == "" {
		c.Source = CardSourceApp
	}
	return nil
}

// Accept moves a draft card into the sync queue. Any other starting status is
// an error and leaves the card untouched.
func (c *Card) Accept() error {
	if c.Status != CardStatusDraft {
		return fmt.Errorf("%w: card %s is %s, expected %s", ErrInvalidState, c.ID, c.Status, CardStatusDraft)
	}
	c.Status = CardStatusPendingSync
	return nil
}

// Confirm records that Anki has durably stored the card under the given note
// id. Re-confirming an already synced card is permitted.
func (c *Card) Confirm(ankiNoteID int64) {
	c.AnkiNoteID = &ankiNoteID
	c.Status = CardStatusSynced
}

// MarkDeleted soft-deletes the card; the row is kept. Idempotent.
func (c *Card) MarkDeleted() {
	c.Status = CardStatusDeleted
}

// SearchText joins the card's field values, in field-name order, into the
// text that gets embedded for duplicate detection. Field-name order keeps the
// text stable across calls so cached embeddings stay comparable.
func (c *Card) SearchText() string {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if v := c.Fields[name]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
