package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/ericstoecker/anki-translator/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine reconciles the backend's card store with the Anki add-on. Every
// operation is idempotent so the add-on can retry a whole exchange after a
// crash; pull and confirm are the two phases of one exchange and repeating
// pull before confirm is always safe.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

type TemplateSyncResult struct {
	DecksSynced     int `json:"decks_synced"`
	NoteTypesSynced int `json:"note_types_synced"`
}

type PushResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// UpsertTemplates mirrors the add-on's deck/model snapshot. Decks are keyed
// by (anki_deck_id, user), note types by anki_model_id. Field lists are
// replaced wholesale on every upsert: Anki is the source of truth for field
// layout. Note types whose deck cannot be resolved are skipped, not failed.
func (e *Engine) UpsertTemplates(ctx context.Context, userID string, req models.TemplateSyncRequest) (TemplateSyncResult, error) {
	var res TemplateSyncResult

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deckMap := make(map[int64]string, len(req.Decks)) // anki deck id -> backend deck id

		for _, deckData := range req.Decks {
			var deck models.Deck
			err := tx.Where("anki_deck_id = ? AND user_id = ?", deckData.AnkiDeckID, userID).First(&deck).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				ankiDeckID := deckData.AnkiDeckID
				deck = models.Deck{
					AnkiDeckID: &ankiDeckID,
					UserID:     userID,
					Name:       deckData.Name,
				}
				if err := tx.Create(&deck).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				deck.Name = deckData.Name
				if err := tx.Save(&deck).Error; err != nil {
					return err
				}
			}
			deckMap[deckData.AnkiDeckID] = deck.ID
			res.DecksSynced++
		}

		for _, ntData := range req.NoteTypes {
			if ntData.AnkiDeckID == nil {
				continue
			}
			deckID, ok := deckMap[*ntData.AnkiDeckID]
			if !ok {
				zap.L().Warn("Skipping note type with unresolved deck",
					zap.Int64("ankiModelID", ntData.AnkiModelID),
					zap.Int64("ankiDeckID", *ntData.AnkiDeckID))
				continue
			}

			var nt models.NoteType
			err := tx.Where("anki_model_id = ?", ntData.AnkiModelID).First(&nt).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				ankiModelID := ntData.AnkiModelID
				nt = models.NoteType{
					AnkiModelID:       &ankiModelID,
					DeckID:            deckID,
					Name:              ntData.Name,
					CSS:               ntData.CSS,
					CardTemplateFront: ntData.CardTemplateFront,
					CardTemplateBack:  ntData.CardTemplateBack,
				}
				if err := tx.Create(&nt).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				nt.DeckID = deckID
				nt.Name = ntData.Name
				nt.CSS = ntData.CSS
				nt.CardTemplateFront = ntData.CardTemplateFront
				nt.CardTemplateBack = ntData.CardTemplateBack
				if err := tx.Save(&nt).Error; err != nil {
					return err
				}
			}

			// Replace the field list: delete existing rows, re-insert the
			// incoming list with its ordinals.
			if err := tx.Where("note_type_id = ?", nt.ID).Delete(&models.NoteTypeField{}).Error; err != nil {
				return err
			}
			for _, fieldData := range ntData.Fields {
				field := models.NoteTypeField{
					NoteTypeID: nt.ID,
					Name:       fieldData.Name,
					Ordinal:    fieldData.Ordinal,
				}
				if err := tx.Create(&field).Error; err != nil {
					return err
				}
			}
			res.NoteTypesSynced++
		}

		return nil
	})

	return res, err
}

// Pull returns the user's app-sourced cards waiting for sync. The since
// cursor is an inclusive lower bound on updated_at; cards touched at exactly
// the cursor instant are re-delivered rather than dropped. Status is not
// changed here; the add-on closes the loop via Confirm.
func (e *Engine) Pull(ctx context.Context, userID string, since *time.Time) ([]models.PullCard, error) {
	query := e.db.WithContext(ctx).
		Where("user_id = ? AND source = ? AND status = ?", userID, models.CardSourceApp, models.CardStatusPendingSync)
	if since != nil {
		query = query.Where("updated_at >= ?", *since)
	}

	var cards []models.Card
	if err := query.Find(&cards).Error; err != nil {
		return nil, err
	}

	ankiDeckIDs, err := e.ankiDeckIDs(ctx, cards)
	if err != nil {
		return nil, err
	}
	ankiModelIDs, err := e.ankiModelIDs(ctx, cards)
	if err != nil {
		return nil, err
	}

	out := make([]models.PullCard, 0, len(cards))
	for _, card := range cards {
		out = append(out, models.PullCard{
			ID:          card.ID,
			DeckID:      card.DeckID,
			NoteTypeID:  card.NoteTypeID,
			AnkiDeckID:  ankiDeckIDs[card.DeckID],
			AnkiModelID: ankiModelIDs[card.NoteTypeID],
			Fields:      card.Fields,
			Tags:        card.Tags,
		})
	}
	return out, nil
}

func (e *Engine) ankiDeckIDs(ctx context.Context, cards []models.Card) (map[string]*int64, error) {
	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.DeckID)
	}
	lookup := make(map[string]*int64, len(ids))
	if len(ids) == 0 {
		return lookup, nil
	}
	var decks []models.Deck
	if err := e.db.WithContext(ctx).Where("id IN ?", ids).Find(&decks).Error; err != nil {
		return nil, err
	}
	for _, deck := range decks {
		lookup[deck.ID] = deck.AnkiDeckID
	}
	return lookup, nil
}

func (e *Engine) ankiModelIDs(ctx context.Context, cards []models.Card) (map[string]*int64, error) {
	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.NoteTypeID)
	}
	lookup := make(map[string]*int64, len(ids))
	if len(ids) == 0 {
		return lookup, nil
	}
	var noteTypes []models.NoteType
	if err := e.db.WithContext(ctx).Where("id IN ?", ids).Find(&noteTypes).Error; err != nil {
		return nil, err
	}
	for _, nt := range noteTypes {
		lookup[nt.ID] = nt.AnkiModelID
	}
	return lookup, nil
}

// Confirm closes out a previous pull: each matching card gets the Anki note
// id the add-on assigned and moves to synced. Unknown backend ids are
// ignored so replayed confirms stay harmless. Returns how many cards were
// confirmed.
func (e *Engine) Confirm(ctx context.Context, userID string, items []models.SyncConfirmItem) (int, error) {
	confirmed := 0

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			var card models.Card
			err := tx.Where("id = ? AND user_id = ?", item.BackendID, userID).First(&card).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			card.Confirm(item.AnkiNoteID)
			if err := tx.Save(&card).Error; err != nil {
				return err
			}
			confirmed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return confirmed, nil
}

// Push takes cards edited or created in Anki and upserts them by
// (anki_note_id, user). Existing cards are overwritten outright; Anki's copy
// wins and there is no merge. New cards must resolve their deck and note
// type by Anki id, otherwise they are skipped and the batch continues.
func (e *Engine) Push(ctx context.Context, userID string, cards []models.SyncPushCard) (PushResult, error) {
	var res PushResult

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, data := range cards {
			var existing models.Card
			err := tx.Where("anki_note_id = ? AND user_id = ?", data.AnkiNoteID, userID).First(&existing).Error
			switch {
			case err == nil:
				existing.Fields = data.Fields
				existing.Tags = data.Tags
				existing.Status = models.CardStatusSynced
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				res.Updated++

			case errors.Is(err, gorm.ErrRecordNotFound):
				var deck models.Deck
				if err := tx.Where("anki_deck_id = ? AND user_id = ?", data.AnkiDeckID, userID).First(&deck).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						zap.L().Warn("Skipping pushed card with unresolved deck",
							zap.Int64("ankiNoteID", data.AnkiNoteID),
							zap.Int64("ankiDeckID", data.AnkiDeckID))
						continue
					}
					return err
				}

				var nt models.NoteType
				if err := tx.Where("anki_model_id = ?", data.AnkiModelID).First(&nt).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						zap.L().Warn("Skipping pushed card with unresolved note type",
							zap.Int64("ankiNoteID", data.AnkiNoteID),
							zap.Int64("ankiModelID", data.AnkiModelID))
						continue
					}
					return err
				}

				ankiNoteID := data.AnkiNoteID
				card := models.Card{
					AnkiNoteID: &ankiNoteID,
					UserID:     userID,
					DeckID:     deck.ID,
					NoteTypeID: nt.ID,
					Fields:     data.Fields,
					Tags:       data.Tags,
					Status:     models.CardStatusSynced,
					Source:     models.CardSourceAnki,
				}
				if err := tx.Create(&card).Error; err != nil {
					return err
				}
				res.Created++

			default:
				return err
			}
		}
		return nil
	})

	return res, err
}
