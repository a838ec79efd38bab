// Package chatclient drives the intake conversation on the client side of the channel.
package chatclient

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"parcel/internal/modules/intake"
	"parcel/internal/modules/transcript"
	"parcel/internal/protocol"
	"parcel/internal/types"
)

type Sender interface {
	Send(env protocol.Envelope) error
}

type LineKind int

const (
	LineBot LineKind = iota + 1
	LineUser
	// LineNotice is local feedback (validation errors, transport problems) that
	// is shown but not recorded in the transcript.
	LineNotice
)

type Line struct {
	Kind LineKind
	Text string
}

type Options struct {
	StartDelay  time.Duration
	PromptDelay time.Duration
}

func DefaultOptions() Options {
	return Options{StartDelay: time.Second, PromptDelay: 500 * time.Millisecond}
}

type Client struct {
	mu      sync.Mutex
	machine *intake.Machine
	sender  Sender
	out     func(Line)
	opts    Options
}

func New(sender Sender, out func(Line), opts Options) *Client {
	return &Client{
		machine: intake.NewMachine(intake.DefaultQuestions()),
		sender:  sender,
		out:     out,
		opts:    opts,
	}
}

// Start greets the user and asks the first question after StartDelay.
func (c *Client) Start() {
	c.bot(intake.Greeting)
	c.after(c.opts.StartDelay, func() {
		q, err := c.machine.Start()
		if err != nil {
			c.notice(err.Error())
			return
		}
		c.bot(q.Text)
	})
}

// Input handles one line typed by the user.
func (c *Client) Input(raw string) {
	retry := c.machine.Phase() == intake.PhaseComplete

	out, err := c.machine.Submit(raw)
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		c.notice(verr.Message)
		return
	case errors.Is(err, intake.ErrAwaitingResult):
		c.notice("Still calculating, please wait...")
		return
	case err != nil:
		c.notice(err.Error())
		return
	}

	switch out.Kind {
	case intake.OutcomeNext:
		c.user(raw)
		next := out.Next
		c.after(c.opts.PromptDelay, func() { c.bot(next.Text) })
	case intake.OutcomeComplete:
		if !retry {
			c.user(raw)
		}
		c.bot(intake.CalculatingText)
		c.emit(protocol.EventParcelData, protocol.ParcelData{
			Name:        out.Record[intake.QuestionName],
			Email:       out.Record[intake.QuestionEmail],
			Source:      out.Record[intake.QuestionSource],
			Destination: out.Record[intake.QuestionDestination],
			Weight:      protocol.Weight(out.Record[intake.QuestionWeight]),
		})
	case intake.OutcomeQuestion:
		c.user(raw)
		c.emit(protocol.EventChatgptQuestion, out.Question)
	}
}

type calculationResult struct {
	Distance types.Kilometers `json:"distance"`
	Amount   int64            `json:"amount"`
	Currency string           `json:"currency"`
}

// HandleEvent reacts to one server event.
func (c *Client) HandleEvent(env protocol.Envelope) {
	switch env.Event {
	case protocol.EventCalculationResult:
		var res calculationResult
		if err := env.Decode(&res); err != nil {
			c.machine.ResultFailed()
			c.bot(intake.RenderCalculationError("unreadable result"))
			return
		}
		record, err := c.machine.ResultReceived()
		if err != nil {
			c.notice(err.Error())
			return
		}
		c.bot(intake.RenderSummary(record, res.Distance, types.Money{Amount: res.Amount, Currency: res.Currency}))
	case protocol.EventCalculationError:
		c.machine.ResultFailed()
		c.bot(intake.RenderCalculationError(decodeText(env)))
		c.notice("Send any message to try the calculation again.")
	case protocol.EventChatgptAnswer, protocol.EventChatgptError:
		c.bot(decodeText(env))
	case protocol.EventMessageError:
		c.notice("transcript not saved: " + decodeText(env))
	case protocol.EventError:
		c.notice("server: " + decodeText(env))
	case protocol.EventMessageSaved:
	}
}

func decodeText(env protocol.Envelope) string {
	var s string
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return string(env.Data)
	}
	return s
}

func (c *Client) bot(text string) {
	c.push(Line{Kind: LineBot, Text: text}, transcript.RoleAssistant)
}

func (c *Client) user(text string) {
	c.push(Line{Kind: LineUser, Text: text}, transcript.RoleUser)
}

// push shows a chat line and records it in the transcript.
func (c *Client) push(line Line, role transcript.Role) {
	c.mu.Lock()
	c.out(line)
	c.mu.Unlock()
	c.emit(protocol.EventSendMessage, []transcript.Message{{
		Sender:    role,
		Text:      line.Text,
		Timestamp: time.Now().UnixMilli(),
	}})
}

func (c *Client) notice(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out(Line{Kind: LineNotice, Text: text})
}

func (c *Client) emit(event string, payload any) {
	env, err := protocol.NewEnvelope(event, payload)
	if err == nil {
		err = c.sender.Send(env)
	}
	if err != nil {
		c.notice("connection problem: " + err.Error())
	}
}

func (c *Client) after(d time.Duration, fn func()) {
	if d <= 0 {
		fn()
		return
	}
	time.AfterFunc(d, fn)
}

// Mode reports whether the client is still collecting the form.
func (c *Client) Mode() intake.Mode {
	return c.machine.Mode()
}
