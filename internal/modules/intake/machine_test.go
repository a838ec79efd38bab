package intake

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"parcel/internal/types"
)

var validAnswers = []string{"Asha Rao", "asha@example.com", "Pune", "Mumbai", "2.5"}

func startedMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(DefaultQuestions())
	q, err := m.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if q.ID != QuestionName {
		t.Fatalf("expected first question name, got %s", q.ID)
	}
	return m
}

func fillForm(t *testing.T, m *Machine) Outcome {
	t.Helper()
	var out Outcome
	for _, a := range validAnswers {
		var err error
		out, err = m.Submit(a)
		if err != nil {
			t.Fatalf("Submit(%q): %v", a, err)
		}
	}
	return out
}

func TestQuestionOrderAndText(t *testing.T) {
	want := []struct {
		id   QuestionID
		text string
	}{
		{QuestionName, "👤 What is your full name?"},
		{QuestionEmail, "📧 What is your email address?"},
		{QuestionSource, "📍 Source location of the parcel?"},
		{QuestionDestination, "📍 Destination location of the parcel?"},
		{QuestionWeight, "⚖️ Weight of the parcel (kg)?"},
	}
	qs := DefaultQuestions()
	if len(qs) != len(want) {
		t.Fatalf("expected %d questions, got %d", len(want), len(qs))
	}
	for i, w := range want {
		if qs[i].ID != w.id || qs[i].Text != w.text {
			t.Errorf("question %d: got %s %q", i, qs[i].ID, qs[i].Text)
		}
	}
}

func TestValidators(t *testing.T) {
	qs := DefaultQuestions()
	byID := map[QuestionID]Question{}
	for _, q := range qs {
		byID[q.ID] = q
	}
	tests := []struct {
		id    QuestionID
		input string
		ok    bool
	}{
		{QuestionName, "Al", false},
		{QuestionName, "  Al  ", false},
		{QuestionName, "Ali", true},
		{QuestionEmail, "asha@example.com", true},
		{QuestionEmail, "asha@example", false},
		{QuestionEmail, "asha example.com", false},
		{QuestionEmail, "@a.b", false},
		{QuestionSource, "Goa", true},
		{QuestionSource, " Go ", false},
		{QuestionDestination, "NYC", true},
		{QuestionDestination, "", false},
		{QuestionWeight, "2.5", true},
		{QuestionWeight, " 3 ", true},
		{QuestionWeight, "0", false},
		{QuestionWeight, "-1", false},
		{QuestionWeight, "abc", false},
		{QuestionWeight, "", false},
		{QuestionWeight, "Inf", false},
		{QuestionWeight, "NaN", false},
	}
	for _, tt := range tests {
		if got := byID[tt.id].Validate(tt.input); got != tt.ok {
			t.Errorf("%s(%q) = %v, want %v", tt.id, tt.input, got, tt.ok)
		}
	}
}

func TestSubmitRejectsWithoutMutating(t *testing.T) {
	m := startedMachine(t)
	_, err := m.Submit("Al")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Message != "Name must be at least 3 characters" || m.LastError() != verr.Message {
		t.Fatalf("unexpected error text %q / %q", verr.Message, m.LastError())
	}
	if len(m.Answers()) != 0 || m.Index() != 0 || m.Phase() != PhaseAsking {
		t.Fatalf("state must not change on rejection")
	}

	out, err := m.Submit("Alice")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if m.LastError() != "" {
		t.Fatal("error should clear on success")
	}
	if out.Kind != OutcomeNext || out.Next.ID != QuestionEmail {
		t.Fatalf("expected email next, got %+v", out)
	}
}

func TestEveryQuestionSurfacesItsOwnError(t *testing.T) {
	bad := []string{"x", "not-an-email", "ab", "  ", "zero"}
	m := startedMachine(t)
	for i, q := range DefaultQuestions() {
		if _, err := m.Submit(bad[i]); err == nil || err.Error() != q.Error {
			t.Fatalf("question %s: expected %q, got %v", q.ID, q.Error, err)
		}
		if _, err := m.Submit(validAnswers[i]); err != nil {
			t.Fatalf("question %s: %v", q.ID, err)
		}
	}
}

func TestCompleteForwardsFullRecordOnce(t *testing.T) {
	m := startedMachine(t)
	out := fillForm(t, m)
	if out.Kind != OutcomeComplete {
		t.Fatalf("expected complete outcome, got %+v", out)
	}
	if !out.Record.Complete(DefaultQuestions()) || out.Record[QuestionWeight] != "2.5" {
		t.Fatalf("incomplete record %+v", out.Record)
	}
	if m.Phase() != PhaseComplete || m.Mode() != ModeCollecting {
		t.Fatalf("expected complete/collecting, got %s/%s", m.Phase(), m.Mode())
	}
	if _, err := m.Submit("anything"); !errors.Is(err, ErrAwaitingResult) {
		t.Fatalf("expected ErrAwaitingResult, got %v", err)
	}
}

func TestFreeFormOnlyAfterSuccessfulResult(t *testing.T) {
	m := startedMachine(t)
	fillForm(t, m)

	m.ResultFailed()
	if m.Mode() != ModeCollecting {
		t.Fatal("a failed calculation must not enter free-form mode")
	}

	record, err := func() (AnswerRecord, error) {
		out, err := m.Submit("retry please")
		if err != nil {
			return nil, err
		}
		if out.Kind != OutcomeComplete {
			t.Fatalf("expected the record to be re-forwarded, got %+v", out)
		}
		return m.ResultReceived()
	}()
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if record[QuestionName] != "Asha Rao" {
		t.Fatalf("expected collected record back, got %+v", record)
	}
	if m.Mode() != ModeFreeForm || len(m.Answers()) != 0 {
		t.Fatalf("expected free-form with discarded record")
	}

	out, err := m.Submit("Why is Mumbai so expensive?")
	if err != nil || out.Kind != OutcomeQuestion || out.Question != "Why is Mumbai so expensive?" {
		t.Fatalf("unexpected free-form outcome %+v %v", out, err)
	}
}

func TestResultReceivedBeforeCompleteIsRejected(t *testing.T) {
	m := startedMachine(t)
	if _, err := m.ResultReceived(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if m.Phase() != PhaseAsking {
		t.Fatal("phase must not change")
	}
}

func TestSubmitBeforeStart(t *testing.T) {
	m := NewMachine(DefaultQuestions())
	if _, err := m.Submit("hello"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if _, err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.Start(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Start should fail, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseIdle, PhaseAsking, true},
		{PhaseIdle, PhaseComplete, false},
		{PhaseIdle, PhaseFreeForm, false},
		{PhaseAsking, PhaseComplete, true},
		{PhaseAsking, PhaseFreeForm, false},
		{PhaseAsking, PhaseIdle, false},
		{PhaseComplete, PhaseFreeForm, true},
		{PhaseComplete, PhaseAsking, false},
		{PhaseFreeForm, PhaseAsking, false},
		{PhaseFreeForm, PhaseComplete, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestAnswersReturnsCopy(t *testing.T) {
	m := startedMachine(t)
	_, _ = m.Submit("Asha Rao")
	a := m.Answers()
	a[QuestionName] = "mutated"
	if m.Answers()[QuestionName] != "Asha Rao" {
		t.Fatal("Answers must not expose internal state")
	}
}

func TestConcurrentSubmits(t *testing.T) {
	m := startedMachine(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Submit("Asha Rao")
		}()
	}
	wg.Wait()
	// Only the first submit passes the name question; the rest fail the email check.
	if m.Answers()[QuestionName] != "Asha Rao" || m.Index() != 1 {
		t.Fatalf("unexpected state index=%d answers=%v", m.Index(), m.Answers())
	}
}

func TestRenderSummary(t *testing.T) {
	record := AnswerRecord{
		QuestionName:        "Asha Rao",
		QuestionSource:      "Pune",
		QuestionDestination: "Mumbai",
		QuestionWeight:      "2.5",
	}
	got := RenderSummary(record, types.RoundKm(148.456), types.Money{Amount: 1275, Currency: "INR"})
	for _, want := range []string{
		"🧾 Parcel Summary:",
		"👤 Name: Asha Rao",
		"📍 Source: Pune",
		"📍 Destination: Mumbai",
		"⚖️ Weight: 2.5 kg",
		"📏 Distance: 148.46 km",
		"💰 Amount: ₹1275",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}
