package models

// Payloads exchanged with the Anki add-on during synchronization. Anki's own
// note/deck/model ids are opaque here; the backend never mints them.

type DeckSyncData struct {
	AnkiDeckID int64  `json:"anki_deck_id"`
	Name       string `json:"name"`
}

type NoteTypeFieldSyncData struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

type NoteTypeSyncData struct {
	AnkiModelID       int64                   `json:"anki_model_id"`
	AnkiDeckID        *int64                  `json:"anki_deck_id"`
	Name              string                  `json:"name"`
	CSS               *string                 `json:"css"`
	CardTemplateFront *string                 `json:"card_template_front"`
	CardTemplateBack  *string                 `json:"card_template_back"`
	Fields            []NoteTypeFieldSyncData `json:"fields"`
}

type TemplateSyncRequest struct {
	Decks     []DeckSyncData     `json:"decks"`
	NoteTypes []NoteTypeSyncData `json:"note_types"`
}

// PullCard is the projection returned to the add-on for cards awaiting sync.
// It carries the Anki deck/model ids so the add-on can place the note without
// guessing from names or field layouts.
type PullCard struct {
	ID          string   `json:"id"`
	DeckID      string   `json:"deck_id"`
	NoteTypeID  string   `json:"note_type_id"`
	AnkiDeckID  *int64   `json:"anki_deck_id"`
	AnkiModelID *int64   `json:"anki_model_id"`
	Fields      FieldMap `json:"fields"`
	Tags        string   `json:"tags"`
}

type SyncConfirmItem struct {
	BackendID  string `json:"backend_id"`
	AnkiNoteID int64  `json:"anki_note_id"`
}

type SyncPushCard struct {
	AnkiNoteID  int64    `json:"anki_note_id"`
	AnkiDeckID  int64    `json:"anki_deck_id"`
	AnkiModelID int64    `json:"anki_model_id"`
	Fields      FieldMap `json:"fields"`
	Tags        string   `json:"tags"`
}
