package domain

import (
	"time"
)

// PageVisitRecord is one append-only row per view entry.
type PageVisitRecord struct {
	PageName  string    `json:"page_name"`
	VisitedAt time.Time `json:"visited_at"`
}

// PredictionRecord is one append-only row per successful prediction.
// Confidence is the maximum value of the probability distribution the
// classifier returned for RawText.
type PredictionRecord struct {
	RawText        string    `json:"raw_text"`
	PredictedLabel string    `json:"predicted_label"`
	Confidence     float64   `json:"confidence"`
	PredictedAt    time.Time `json:"predicted_at"`
}
