// ABOUTME: Session lifecycle events published to NATS
// ABOUTME: started, cue, missed and stopped messages encoded as JSON with sonic
package events

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/session"
)

// DefaultSubject prefixes every event subject
const DefaultSubject = "resonance.session"

// Type names an event
type Type string

const (
	TypeStarted Type = "started"
	TypeCue     Type = "cue"
	TypeMissed  Type = "missed"
	TypeStopped Type = "stopped"
)

// Event is one lifecycle message
type Event struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"session_id"`
	Preset    string    `json:"preset"`
	Mode      string    `json:"mode"`
	Time      time.Time `json:"time"`
	Position  int64     `json:"position"`

	// cue and missed
	Ordinal   int64  `json:"ordinal"`
	Round     int    `json:"round"`
	Utterance string `json:"utterance,omitempty"`
	Voice     string `json:"voice,omitempty"`
	At        int64  `json:"at"`

	// stopped
	Outcome string `json:"outcome,omitempty"`
	Played  int64  `json:"played,omitempty"`
	Missed  int64  `json:"missed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Subject returns the subject an event goes to under prefix
func (e Event) Subject(prefix string) string {
	return prefix + "." + string(e.Type)
}

// Started builds the event for a session start
func Started(st session.Status) Event {
	return base(TypeStarted, st)
}

// Cued builds the event for a cue, typed missed when its clip was not ready
func Cued(st session.Status, cue affirm.Cue) Event {
	t := TypeCue
	if cue.Outcome == affirm.CueMissed {
		t = TypeMissed
	}
	evt := base(t, st)
	evt.Ordinal = cue.Ordinal
	evt.Round = cue.Round
	evt.Utterance = cue.Utterance.Text
	evt.Voice = cue.Utterance.Voice
	evt.At = cue.At
	return evt
}

// Stopped builds the event for a session end
func Stopped(st session.Status, err error) Event {
	evt := base(TypeStopped, st)
	evt.Outcome = string(st.Outcome)
	evt.Played = st.Cues.Played
	evt.Missed = st.Cues.Missed
	if err != nil {
		evt.Error = err.Error()
	}
	return evt
}

func base(t Type, st session.Status) Event {
	return Event{
		Type:      t,
		SessionID: st.ID,
		Preset:    st.Preset,
		Mode:      string(st.Mode),
		Time:      time.Now().UTC(),
		Position:  st.Position,
	}
}

// Encode marshals an event to JSON
func Encode(evt Event) ([]byte, error) {
	data, err := sonic.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", evt.Type, err)
	}
	return data, nil
}

// Decode unmarshals a JSON event
func Decode(data []byte) (Event, error) {
	var evt Event
	if err := sonic.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return evt, nil
}

// Publisher sends session events to NATS
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials NATS at url; events go to subject.<type>
func Connect(url, subject string) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("no NATS url configured")
	}
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("resonance"),
		nats.Timeout(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Printf("Connected to NATS at %s (subject %s)", url, subject)

	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends one event
func (p *Publisher) Publish(evt Event) error {
	data, err := Encode(evt)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(evt.Subject(p.subject), data); err != nil {
		return fmt.Errorf("publish %s event: %w", evt.Type, err)
	}
	return nil
}

// Close flushes pending events and disconnects
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Drain()
	p.conn.Close()
}

// Started implements session.Hooks
func (p *Publisher) Started(st session.Status) {
	p.send(Started(st))
}

// Cue implements session.Hooks
func (p *Publisher) Cue(st session.Status, cue affirm.Cue) {
	if cue.Outcome == affirm.CueDeferred {
		return
	}
	p.send(Cued(st, cue))
}

// Stopped implements session.Hooks
func (p *Publisher) Stopped(st session.Status, err error) {
	p.send(Stopped(st, err))
	if ferr := p.conn.Flush(); ferr != nil {
		log.Printf("NATS flush failed: %v", ferr)
	}
}

func (p *Publisher) send(evt Event) {
	if err := p.Publish(evt); err != nil {
		log.Printf("Event dropped: %v", err)
	}
}
