package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Deck struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	AnkiDeckID *int64 `gorm:"uniqueIndex" json:"anki_deck_id"`
	UserID     string `gorm:"size:36;index" json:"-"`
	Name       string `gorm:"size:255" json:"name"`

	// Inferred lazily from card content; nil until detection has run.
	SourceLanguage *string `gorm:"size:50" json:"source_language"`
	TargetLanguage *string `gorm:"size:50" json:"target_language"`

	NoteTypes []NoteType `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Deck) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

type NoteType struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	AnkiModelID *int64 `gorm:"uniqueIndex" json:"anki_model_id"`
	DeckID      string `gorm:"size:36;index" json:"deck_id"`
	Name        string `gorm:"size:255" json:"name"`

	CSS               *string `gorm:"type:text" json:"css"`
	CardTemplateFront *string `gorm:"type:text" json:"card_template_front"`
	CardTemplateBack  *string `gorm:"type:text" json:"card_template_back"`

	// Ordered by Ordinal; replaced wholesale on every template upsert.
	Fields []NoteTypeField `json:"fields"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (nt *NoteType) BeforeCreate(tx *gorm.DB) error {
	if nt.ID == "" {
		nt.ID = uuid.NewString()
	}
	return nil
}

// FieldNames returns the note type's field names in ordinal order.
func (nt *NoteType) FieldNames() []string {
	names := make([]string, 0, len(nt.Fields))
	for _, f := range nt.Fields {
		names = append(names, f.Name)
	}
	return names
}

type NoteTypeField struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	NoteTypeID string `gorm:"size:36;index" json:"-"`
	Name       string `gorm:"size:255" json:"name"`
	Ordinal    int    `json:"ordinal"`
}

func (f *NoteTypeField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
