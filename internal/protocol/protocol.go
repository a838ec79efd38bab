// Package protocol defines the JSON envelopes exchanged over the chat websocket.
package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Client → server events.
const (
	EventSendMessage     = "sendMessage"
	EventParcelData      = "parcelData"
	EventChatgptQuestion = "chatgptQuestion"
)

// Server → client events.
const (
	EventMessageSaved      = "messageSaved"
	EventMessageError      = "messageError"
	EventCalculationResult = "calculationResult"
	EventCalculationError  = "calculationError"
	EventChatgptAnswer     = "chatgptAnswer"
	EventChatgptError      = "chatgptError"
	EventError             = "error"
)

// Envelope is one websocket frame: {"event": name, "data": payload}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an envelope for event.
func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing data", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: %w", e.Event, err)
	}
	return nil
}

// ParcelData is the completed intake record sent for pricing. Weight is
// accepted as either a JSON string or a number.
type ParcelData struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Weight      Weight `json:"weight"`
}

// Weight holds the raw weight text whether it arrived as a string or a number.
type Weight string

func (w *Weight) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = Weight(s)
		return nil
	}
	if string(data) == "null" {
		*w = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*w = Weight(n)
	return nil
}

// WeightKg parses Weight; ok is false for anything that is not a finite number.
func (p ParcelData) WeightKg() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(p.Weight)), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

type SaveAck struct {
	Success bool `json:"success"`
}
