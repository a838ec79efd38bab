package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"parcel/internal/modules/quote"
)

const systemInstruction = `You are a parcel delivery assistant.
You can explain pricing, delivery logic, and give general estimates.
If the user asks about other platforms, do NOT refuse.
Instead, explain that prices vary and give a general comparison or guidance,
while clearly stating that the shown price is for our service.
Be helpful and business-friendly.
Keep your response short and useful for the client.`

// RenderContext formats the order the answer must be grounded in.
func RenderContext(o quote.OrderResult) string {
	var b strings.Builder
	b.WriteString("Parcel Details:\n")
	fmt.Fprintf(&b, "- Source: %s\n", o.Source)
	fmt.Fprintf(&b, "- Destination: %s\n", o.Destination)
	fmt.Fprintf(&b, "- Distance: %s km\n", o.Distance)
	fmt.Fprintf(&b, "- Weight: %s kg\n", strconv.FormatFloat(o.Weight, 'f', -1, 64))
	fmt.Fprintf(&b, "- Our Price: %s\n", o.Price())
	return b.String()
}

func userMessage(o quote.OrderResult, question string) string {
	return RenderContext(o) + "\nUser question: " + question
}
