// README: Client-side conversation state machine for the parcel intake form.
package intake

import (
	"errors"
	"fmt"
	"sync"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseAsking   Phase = "asking"
	PhaseComplete Phase = "complete"
	PhaseFreeForm Phase = "free_form"
)

type Mode string

const (
	ModeCollecting Mode = "collecting"
	ModeFreeForm   Mode = "free_form"
)

// AllowedTransitions represents the conversation flow as code.
// asking → asking is the step to the next question; complete → complete is
// a retry after a failed calculation.
var AllowedTransitions = map[Phase][]Phase{
	PhaseIdle:     {PhaseAsking},
	PhaseAsking:   {PhaseAsking, PhaseComplete},
	PhaseComplete: {PhaseComplete, PhaseFreeForm},
}

func CanTransition(from, to Phase) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, p := range next {
		if p == to {
			return true
		}
	}
	return false
}

var (
	ErrNotStarted     = errors.New("conversation not started")
	ErrAwaitingResult = errors.New("waiting for the parcel calculation")
	ErrInvalidState   = errors.New("invalid state transition")
)

// ValidationError reports an answer rejected by its question.
type ValidationError struct {
	Question QuestionID
	Message  string
}

func (e *ValidationError) Error() string { return e.Message }

// AnswerRecord maps question ids to the raw answers given.
type AnswerRecord map[QuestionID]string

type OutcomeKind int

const (
	// OutcomeNext: the answer was accepted and Next is the following question.
	OutcomeNext OutcomeKind = iota + 1
	// OutcomeComplete: the form is filled and Record must go to the pipeline.
	OutcomeComplete
	// OutcomeQuestion: free-form text to send to the assistant.
	OutcomeQuestion
)

type Outcome struct {
	Kind     OutcomeKind
	Next     Question
	Record   AnswerRecord
	Question string
}

// Machine is safe for concurrent use.
type Machine struct {
	mu        sync.Mutex
	questions []Question
	phase     Phase
	index     int
	answers   AnswerRecord
	lastErr   string
	pending   bool
}

func NewMachine(questions []Question) *Machine {
	return &Machine{
		questions: questions,
		phase:     PhaseIdle,
		answers:   AnswerRecord{},
	}
}

// Start asks the first question.
func (m *Machine) Start() (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.questions) == 0 {
		return Question{}, errors.New("no questions configured")
	}
	if m.phase != PhaseIdle {
		return Question{}, fmt.Errorf("%w: already started", ErrInvalidState)
	}
	if err := m.transition(PhaseAsking); err != nil {
		return Question{}, err
	}
	m.index = 0
	return m.questions[0], nil
}

// Submit feeds one line of user input to the machine.
func (m *Machine) Submit(raw string) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case PhaseIdle:
		return Outcome{}, ErrNotStarted
	case PhaseFreeForm:
		return Outcome{Kind: OutcomeQuestion, Question: raw}, nil
	case PhaseComplete:
		if m.pending {
			return Outcome{}, ErrAwaitingResult
		}
		// Retry after a failed calculation.
		m.pending = true
		return Outcome{Kind: OutcomeComplete, Record: m.answers.clone()}, nil
	}

	q := m.questions[m.index]
	if !q.Validate(raw) {
		m.lastErr = q.Error
		return Outcome{}, &ValidationError{Question: q.ID, Message: q.Error}
	}
	m.answers[q.ID] = raw
	m.lastErr = ""

	if m.index == len(m.questions)-1 {
		if err := m.transition(PhaseComplete); err != nil {
			return Outcome{}, err
		}
		m.pending = true
		return Outcome{Kind: OutcomeComplete, Record: m.answers.clone()}, nil
	}
	if err := m.transition(PhaseAsking); err != nil {
		return Outcome{}, err
	}
	m.index++
	return Outcome{Kind: OutcomeNext, Next: m.questions[m.index]}, nil
}

// ResultReceived moves to free-form mode and hands back the discarded record.
func (m *Machine) ResultReceived() (AnswerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseComplete && !m.pending {
		return nil, fmt.Errorf("%w: no calculation pending", ErrInvalidState)
	}
	if err := m.transition(PhaseFreeForm); err != nil {
		return nil, err
	}
	record := m.answers
	m.answers = AnswerRecord{}
	m.pending = false
	return record, nil
}

// ResultFailed keeps the machine in complete; the next Submit retries.
func (m *Machine) ResultFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseComplete {
		m.pending = false
	}
}

func (m *Machine) transition(to Phase) error {
	if !CanTransition(m.phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, m.phase, to)
	}
	m.phase = to
	return nil
}

func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Machine) Mode() Mode {
	if m.Phase() == PhaseFreeForm {
		return ModeFreeForm
	}
	return ModeCollecting
}

// Index is the position of the current question.
func (m *Machine) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Pending reports whether a calculation is in flight.
func (m *Machine) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Answers returns a copy of the record collected so far.
func (m *Machine) Answers() AnswerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answers.clone()
}

func (r AnswerRecord) clone() AnswerRecord {
	out := make(AnswerRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r AnswerRecord) Complete(questions []Question) bool {
	for _, q := range questions {
		if _, ok := r[q.ID]; !ok {
			return false
		}
	}
	return true
}
