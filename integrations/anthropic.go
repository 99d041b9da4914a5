package integrations

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ericstoecker/anki-translator/internal/models"
)

// LLMClient wraps the Anthropic Messages API for the handful of structured
// tasks the backend needs: OCR, translation, card formatting, deck language
// detection, and duplicate confirmation. Each task sends one prompt (plus an
// optional image) and parses the JSON the model returns.
type LLMClient struct {
	client anthropic.Client
	model  string
}

func NewLLMClient(apiKey, model string) *LLMClient {
	return &LLMClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (lc *LLMClient) complete(ctx context.Context, prompt string, imageB64, mediaType string) (string, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if imageB64 != "" {
		blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, imageB64))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	msg, err := lc.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(lc.model),
		MaxTokens: 4096,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (lc *LLMClient) completeJSON(ctx context.Context, prompt, imageB64, mediaType string, out any) error {
	text, err := lc.complete(ctx, prompt, imageB64, mediaType)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(text)), out); err != nil {
		return fmt.Errorf("%w: unparseable model response: %v", models.ErrServiceUnavailable, err)
	}
	return nil
}

// ExtractJSON strips markdown code fences and surrounding prose from a model
// response, returning the first JSON object or array it contains.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

type OCRResult struct {
	RawText string   `json:"raw_text"`
	Words   []string `json:"words"`
}

// ExtractWords reads all words off a photographed page or screenshot.
func (lc *LLMClient) ExtractWords(ctx context.Context, imageBytes []byte, mediaType string) (*OCRResult, error) {
	imageB64 := base64.StdEncoding.EncodeToString(imageBytes)
	prompt := "Extract all readable words from this image. " +
		"Return a JSON object with two keys:\n" +
		"- \"raw_text\": the full extracted text as a string\n" +
		"- \"words\": a list of unique individual words found in the text\n"

	var result OCRResult
	if err := lc.completeJSON(ctx, prompt, imageB64, mediaType, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type TranslationOption struct {
	Word              string `json:"word"`
	Translation       string `json:"translation"`
	PartOfSpeech      string `json:"part_of_speech"`
	Context           string `json:"context"`
	NativeTranslation string `json:"native_translation,omitempty"`
}

// TranslateWord returns up to three translation options for a word. A native
// language distinct from the target adds a native_translation per option.
func (lc *LLMClient) TranslateWord(ctx context.Context, word, sourceLanguage, targetLanguage, nativeLanguage string) ([]TranslationOption, error) {
	includeNative := nativeLanguage != "" && nativeLanguage != targetLanguage
	nativeInstruction := ""
	if includeNative {
		nativeInstruction = fmt.Sprintf("\n- \"native_translation\": the translation of the word to %s", nativeLanguage)
	}

	prompt := fmt.Sprintf(
		"Translate the word %q from %s to %s.\n"+
			"If the word has multiple distinct meanings, return up to 3 translations.\n"+
			"Return a JSON object with a \"translations\" array, each item with these keys:\n"+
			"- \"word\": the original word\n"+
			"- \"translation\": the translation in %s\n"+
			"- \"part_of_speech\": the part of speech (noun, verb, adjective, etc.)\n"+
			"- \"context\": a brief example sentence or usage note"+
			"%s\n",
		word, sourceLanguage, targetLanguage, targetLanguage, nativeInstruction)

	var result struct {
		Translations []TranslationOption `json:"translations"`
	}
	if err := lc.completeJSON(ctx, prompt, "", "", &result); err != nil {
		return nil, err
	}
	return result.Translations, nil
}

// TranslateNative returns a single bare translation into the user's native
// language, no JSON wrapping.
func (lc *LLMClient) TranslateNative(ctx context.Context, word, sourceLanguage, nativeLanguage string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the word %q from %s to %s.\n"+
			"Return only the translated word or short phrase, no other text.",
		word, sourceLanguage, nativeLanguage)

	response, err := lc.complete(ctx, prompt, "", "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

type FormatCardParams struct {
	Word              string
	Translation       string
	FieldNames        []string
	ExampleCards      []models.FieldMap
	SourceLanguage    string
	TargetLanguage    string
	PartOfSpeech      string
	NativeTranslation string
	Context           string
}

// FormatCardFields fills a note type's fields for a new card, deriving the
// formatting pattern from the deck's most recent cards. The response must
// cover every declared field; extra keys the model invents are dropped.
func (lc *LLMClient) FormatCardFields(ctx context.Context, params FormatCardParams) (models.FieldMap, error) {
	var examples strings.Builder
	for _, fields := range params.ExampleCards {
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		examples.WriteString("  ")
		examples.Write(encoded)
		examples.WriteString("\n")
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt,
		"I need to create a new flashcard for the word %q (translated as %q from %s to %s).\n\n"+
			"The card has these fields: %v\n\n"+
			"Here are the most recent cards from this deck, ordered newest-first. "+
			"Derive the current formatting pattern and create a new card following "+
			"that pattern exactly:\n%s\n",
		params.Word, params.Translation, params.SourceLanguage, params.TargetLanguage,
		params.FieldNames, examples.String())
	if params.PartOfSpeech != "" {
		fmt.Fprintf(&prompt, "Part of speech: %s\n", params.PartOfSpeech)
	}
	if params.NativeTranslation != "" {
		fmt.Fprintf(&prompt, "Also include the native language translation: %s\n", params.NativeTranslation)
	}
	if params.Context != "" {
		fmt.Fprintf(&prompt, "Context/usage: %s\n", params.Context)
	}
	prompt.WriteString("\nReturn a JSON object mapping field names to their values, " +
		"following the formatting pattern from the examples above.")

	var raw map[string]string
	if err := lc.completeJSON(ctx, prompt.String(), "", "", &raw); err != nil {
		return nil, err
	}

	fields := make(models.FieldMap, len(params.FieldNames))
	for _, name := range params.FieldNames {
		value, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("%w: model response missing field %q", models.ErrServiceUnavailable, name)
		}
		fields[name] = value
	}
	return fields, nil
}

type DetectedLanguages struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// DetectDeckLanguages infers a deck's language pair from a sample of its
// cards. At most 20 cards are put in the prompt.
func (lc *LLMClient) DetectDeckLanguages(ctx context.Context, cards []models.FieldMap) (*DetectedLanguages, error) {
	if len(cards) > 20 {
		cards = cards[:20]
	}
	var cardsText strings.Builder
	for _, fields := range cards {
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		cardsText.WriteString("  ")
		cardsText.Write(encoded)
		cardsText.WriteString("\n")
	}

	prompt := fmt.Sprintf(
		"Look at these flashcard fields and determine the two languages used.\n"+
			"One language is the source (the language being studied) and the other is "+
			"the target (the language translations are given in).\n\n"+
			"Cards:\n%s\n"+
			"Return a JSON object with \"source_language\" and \"target_language\", "+
			"as language names in English (e.g., 'German', 'French', 'Italian').",
		cardsText.String())

	var result DetectedLanguages
	if err := lc.completeJSON(ctx, prompt, "", "", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckSemanticDuplicate asks whether a word already exists in any form
// among the given candidate cards. The verdict comes back as-is; the caller
// decides what a negative answer means.
func (lc *LLMClient) CheckSemanticDuplicate(ctx context.Context, word string, candidates []models.DuplicateCandidate, sourceLanguage string) (*models.DuplicateResult, error) {
	var cardsText strings.Builder
	for _, candidate := range candidates {
		encoded, err := json.Marshal(candidate.Fields)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&cardsText, "  - id=%s, fields=%s\n", candidate.ID, encoded)
	}

	prompt := fmt.Sprintf(
		"Does the word %q (in %s) already exist in any form among these existing "+
			"cards? Consider conjugations, different forms, synonyms, and semantic "+
			"equivalents.\n\n"+
			"Existing cards:\n%s\n"+
			"Return a JSON object:\n"+
			"- \"is_duplicate\": true/false\n"+
			"- \"duplicate_of_id\": the id of the matching card (or null)\n"+
			"- \"explanation\": brief explanation of why it is or isn't a duplicate\n",
		word, sourceLanguage, cardsText.String())

	var result models.DuplicateResult
	if err := lc.completeJSON(ctx, prompt, "", "", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
