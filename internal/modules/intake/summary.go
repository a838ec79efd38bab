package intake

import (
	"fmt"
	"strings"

	"parcel/internal/types"
)

const (
	Greeting        = "👋 Hi! I'll help you calculate your parcel journey."
	CalculatingText = "Thank you for the details.\n📦 Calculating the parcel journey..."
)

// RenderSummary builds the parcel summary card from the collected answers
// and the priced result.
func RenderSummary(record AnswerRecord, distance types.Kilometers, price types.Money) string {
	var b strings.Builder
	b.WriteString("🧾 Parcel Summary:\n")
	fmt.Fprintf(&b, "👤 Name: %s\n", strings.TrimSpace(record[QuestionName]))
	fmt.Fprintf(&b, "📍 Source: %s\n", strings.TrimSpace(record[QuestionSource]))
	fmt.Fprintf(&b, "📍 Destination: %s\n", strings.TrimSpace(record[QuestionDestination]))
	fmt.Fprintf(&b, "⚖️ Weight: %s kg\n", strings.TrimSpace(record[QuestionWeight]))
	fmt.Fprintf(&b, "📏 Distance: %s km\n", distance)
	fmt.Fprintf(&b, "💰 Amount: %s", price)
	return b.String()
}

// RenderCalculationError formats a pipeline failure for the chat.
func RenderCalculationError(msg string) string {
	return "❌ Error: " + msg
}
