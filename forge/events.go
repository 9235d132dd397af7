package forge

import (
	"math/big"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/revshare"
)

// EventKind names an outcome.
type EventKind string

const (
	EventRevenueReceived     EventKind = "revenue_received"
	EventMintRequested       EventKind = "mint_requested"
	EventMinted              EventKind = "minted"
	EventFusionRequested     EventKind = "fusion_requested"
	EventFusionSucceeded     EventKind = "fusion_succeeded"
	EventFusionFailed        EventKind = "fusion_failed"
	EventClaimed             EventKind = "claimed"
	EventEmergencyWithdrawal EventKind = "emergency_withdrawal"
	EventParamsUpdated       EventKind = "params_updated"
)

// Event is one committed outcome. Fields not relevant to Kind are empty.
type Event struct {
	ID       string                `json:"id"`
	Kind     EventKind             `json:"kind"`
	At       int64                 `json:"at"`
	Holder   revshare.Holder       `json:"holder,omitempty"`
	Handle   string                `json:"handle,omitempty"`
	Identity *collectible.Identity `json:"identity,omitempty"`
	Roll     *uint64               `json:"roll,omitempty"`
	Amount   *big.Int              `json:"amount,omitempty"`
	Shares   *big.Int              `json:"shares,omitempty"`
	Returned *big.Int              `json:"returned,omitempty"`
	Detail   string                `json:"detail,omitempty"`
}

func newEvent(kind EventKind, at int64) Event {
	return Event{ID: uuid.Must(uuid.NewV7()).String(), Kind: kind, At: at}
}

// EventSink receives committed events, in commit order, after the engine
// lock is released.
type EventSink interface {
	Emit(Event)
}

// Recorder is an EventSink that keeps every event in memory.
type Recorder struct {
	mu     deadlock.Mutex
	events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// logSink writes events to a Logger.
type logSink struct{ log Logger }

func (s logSink) Emit(ev Event) {
	s.log.Info("%s holder=%s handle=%s amount=%v shares=%v", ev.Kind, ev.Holder, ev.Handle, ev.Amount, ev.Shares)
}

// LogSink returns an EventSink that logs each event at info level.
func LogSink(log Logger) EventSink { return logSink{log: log} }

type multiSink []EventSink

func (m multiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// MultiSink fans each event out to sinks in order.
func MultiSink(sinks ...EventSink) EventSink { return multiSink(sinks) }

// Logger is the printf-style leveled logger the engine writes to.
// *logmatic.Logger satisfies it.
type Logger interface {
	Debug(format string, a ...interface{})
	Info(format string, a ...interface{})
	Warn(format string, a ...interface{})
	Error(format string, a ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type nopSink struct{}

func (nopSink) Emit(Event) {}
