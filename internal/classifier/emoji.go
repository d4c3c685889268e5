package classifier

import (
	"errors"
)

// ErrUnknownLabel is returned when the model produces a label outside
// the known emotion set. Callers surface UnmappedMarker instead of
// failing the request.
var ErrUnknownLabel = errors.New("unknown emotion label")

// UnmappedMarker is shown in place of an emoji for unrecognized labels.
const UnmappedMarker = "(unrecognized emotion)"

// emotionEmoji maps the closed emotion label set to display symbols.
var emotionEmoji = map[string]string{
	"anger":    "😠",
	"disgust":  "🤮",
	"fear":     "😨😱",
	"happy":    "🤗",
	"joy":      "😂",
	"neutral":  "😐",
	"sad":      "😔",
	"sadness":  "😔",
	"shame":    "😳",
	"surprise": "😮",
}

// EmojiFor returns the display symbol for an emotion label.
func EmojiFor(label string) (string, error) {
	emoji, ok := emotionEmoji[label]
	if !ok {
		return "", ErrUnknownLabel
	}
	return emoji, nil
}
