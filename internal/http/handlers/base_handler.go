// README: Base handler utilities (JSON helpers, id checks, error-to-event mapping).
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"parcel/internal/modules/assistant"
	"parcel/internal/modules/quote"
	"parcel/internal/modules/transcript"
)

const maxIDLength = 64

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts conversation ids made of letters, digits, '-' and '_'.
func isValidID(v string) bool {
	if v == "" || len(v) > maxIDLength {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// calculationErrorText is the calculationError payload for a pipeline failure.
func calculationErrorText(err error) string {
	switch {
	case errors.Is(err, quote.ErrInvalidRequest):
		return "Missing parcel data"
	case errors.Is(err, quote.ErrLocationNotFound):
		return "Location not found"
	case errors.Is(err, quote.ErrRouteNotFound):
		return "No route found"
	default:
		return "Location services are unavailable, please try again later"
	}
}

// assistantErrorText is the chatgptError payload for an assistant failure.
func assistantErrorText(err error) string {
	switch {
	case errors.Is(err, assistant.ErrInvalidQuestion):
		return "Invalid question"
	case errors.Is(err, assistant.ErrNoContext):
		return "Please complete a parcel quote first, then ask me about it."
	default:
		return "Chat service unavailable"
	}
}

// transcriptErrorText is the messageError payload for a failed save.
func transcriptErrorText(err error) string {
	if errors.Is(err, transcript.ErrInvalidMessage) {
		return "Missing required fields"
	}
	return "Failed to save messages"
}
