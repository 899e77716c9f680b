package events

// InitializedPayload is attached to GAME_INITIALIZED.
type InitializedPayload struct {
	Difficulty string `json:"difficulty"`
	Pairs      int    `json:"pairs"`
	Generation uint64 `json:"generation"`
}

// FlipPayload is attached to CARD_FLIPPED.
type FlipPayload struct {
	CardID int    `json:"card_id"`
	Symbol string `json:"symbol"`
}

// PairPayload is attached to PAIR_SELECTED, PAIR_MATCHED, PAIR_MISMATCHED and
// STALE_RESOLUTION.
type PairPayload struct {
	First      int    `json:"first"`
	Second     int    `json:"second"`
	Moves      int    `json:"moves"`
	Matches    int    `json:"matches"`
	Generation uint64 `json:"generation"`
}

// CompletedPayload is attached to GAME_COMPLETED.
type CompletedPayload struct {
	Difficulty string `json:"difficulty"`
	Moves      int    `json:"moves"`
	DurationMS int64  `json:"duration_ms"`
	Elapsed    string `json:"elapsed"`
}
