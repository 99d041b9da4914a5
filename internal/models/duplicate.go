package models

// DuplicateCandidate is a live card that survived the embedding pre-filter,
// scored by cosine similarity against the candidate word.
type DuplicateCandidate struct {
	ID         string   `json:"id"`
	Fields     FieldMap `json:"fields"`
	Similarity float64  `json:"similarity"`
}

// DuplicateResult is the Language Service's verdict, passed through to the
// caller unchanged when IsDuplicate is true.
type DuplicateResult struct {
	IsDuplicate   bool    `json:"is_duplicate"`
	DuplicateOfID *string `json:"duplicate_of_id"`
	Explanation   string  `json:"explanation"`
}
