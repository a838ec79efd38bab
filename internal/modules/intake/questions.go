package intake

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

type QuestionID string

const (
	QuestionName        QuestionID = "name"
	QuestionEmail       QuestionID = "email"
	QuestionSource      QuestionID = "source"
	QuestionDestination QuestionID = "destination"
	QuestionWeight      QuestionID = "weight"
)

// Question is one prompt of the intake form.
type Question struct {
	ID       QuestionID
	Text     string
	Validate func(raw string) bool
	Error    string
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// DefaultQuestions returns the intake form in asking order.
func DefaultQuestions() []Question {
	return []Question{
		{
			ID:       QuestionName,
			Text:     "👤 What is your full name?",
			Validate: func(v string) bool { return trimmedLen(v) >= 3 },
			Error:    "Name must be at least 3 characters",
		},
		{
			ID:       QuestionEmail,
			Text:     "📧 What is your email address?",
			Validate: emailPattern.MatchString,
			Error:    "Invalid email format",
		},
		{
			ID:       QuestionSource,
			Text:     "📍 Source location of the parcel?",
			Validate: func(v string) bool { return trimmedLen(v) > 2 },
			Error:    "Enter a valid source location",
		},
		{
			ID:       QuestionDestination,
			Text:     "📍 Destination location of the parcel?",
			Validate: func(v string) bool { return trimmedLen(v) > 2 },
			Error:    "Enter a valid destination location",
		},
		{
			ID:       QuestionWeight,
			Text:     "⚖️ Weight of the parcel (kg)?",
			Validate: validWeight,
			Error:    "Enter a valid weight",
		},
	}
}

func trimmedLen(v string) int {
	return utf8.RuneCountInString(strings.TrimSpace(v))
}

func validWeight(v string) bool {
	w, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return err == nil && !math.IsInf(w, 0) && w > 0
}
