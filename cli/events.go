package cli

import (
	"fmt"
	"strings"

	"github.com/bitfsorg/relicpool-go/forge"
)

// EventView is an engine event with amounts in decimal units.
type EventView struct {
	Kind     forge.EventKind `json:"kind"`
	At       int64           `json:"at"`
	Holder   string          `json:"holder,omitempty"`
	Handle   string          `json:"handle,omitempty"`
	Identity string          `json:"identity,omitempty"`
	Roll     *uint64         `json:"roll,omitempty"`
	Amount   string          `json:"amount,omitempty"`
	Shares   string          `json:"shares,omitempty"`
	Returned string          `json:"returned,omitempty"`
	Detail   string          `json:"detail,omitempty"`
}

func newEventView(ev forge.Event) EventView {
	v := EventView{
		Kind:   ev.Kind,
		At:     ev.At,
		Holder: string(ev.Holder),
		Handle: ev.Handle,
		Roll:   ev.Roll,
		Detail: ev.Detail,
	}
	if ev.Identity != nil {
		v.Identity = ev.Identity.String()
	}
	if ev.Amount != nil {
		v.Amount = forge.FormatUnits(ev.Amount)
	}
	if ev.Shares != nil {
		v.Shares = forge.FormatUnits(ev.Shares)
	}
	if ev.Returned != nil {
		v.Returned = forge.FormatUnits(ev.Returned)
	}
	return v
}

// EventsResult lists the events a command committed.
type EventsResult struct {
	Events []EventView `json:"events"`
}

func eventsResult(r *forge.Recorder) EventsResult {
	evs := r.Events()
	out := EventsResult{Events: make([]EventView, 0, len(evs))}
	for _, ev := range evs {
		out.Events = append(out.Events, newEventView(ev))
	}
	return out
}

func (r EventsResult) Text() string {
	var b strings.Builder
	for _, ev := range r.Events {
		b.WriteString(string(ev.Kind))
		for _, kv := range [][2]string{
			{"holder", ev.Holder},
			{"handle", ev.Handle},
			{"identity", ev.Identity},
			{"amount", ev.Amount},
			{"shares", ev.Shares},
			{"returned", ev.Returned},
			{"detail", ev.Detail},
		} {
			if kv[1] != "" {
				fmt.Fprintf(&b, " %s=%s", kv[0], kv[1])
			}
		}
		if ev.Roll != nil {
			fmt.Fprintf(&b, " roll=%d", *ev.Roll)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
