/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package broadcast fans game events out to every subscriber of a channel.
// Each channel numbers its events so subscribers can spot gaps.
package broadcast

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Event names.
const (
	EventGameState        = "game-state"
	EventGameReset        = "game-reset"
	EventPlayerInput      = "player-input"
	EventNarratorResponse = "narrator-response"
	EventNarratorLine     = "narrator-line"
	EventNarratorFinished = "narrator-finished"
)

// Envelope is one sequenced event on a channel.
type Envelope struct {
	Seq     uint64          `json:"seq"`
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Time    time.Time       `json:"time"`
}

// Publisher is fire-and-forget: delivery failures never reach the caller.
type Publisher interface {
	Publish(channel, event string, payload any)
}

type Subscriber struct {
	channel string
	send    chan Envelope
}

// C yields envelopes in emission order. It is closed when the subscriber is
// removed, either explicitly or because it fell too far behind.
func (s *Subscriber) C() <-chan Envelope {
	return s.send
}

type Hub struct {
	mu       sync.Mutex
	seq      map[string]uint64
	subs     map[string]map[*Subscriber]bool
	retained map[string]map[string]Envelope
	sticky   map[string]bool
	buffer   int
	logf     func(format string, args ...any)
}

// NewHub returns a hub that replays the latest envelope of each sticky event
// to new subscribers.
func NewHub(logf func(format string, args ...any), sticky ...string) *Hub {
	h := &Hub{
		seq:      make(map[string]uint64),
		subs:     make(map[string]map[*Subscriber]bool),
		retained: make(map[string]map[string]Envelope),
		sticky:   make(map[string]bool),
		buffer:   32,
		logf:     logf,
	}
	for _, e := range sticky {
		h.sticky[e] = true
	}
	if h.logf == nil {
		h.logf = func(string, ...any) {}
	}
	return h
}

func (h *Hub) Publish(channel, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logf("BROADCAST: Dropped %s on %s: %v", event, channel, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq[channel]++
	env := Envelope{
		Seq:     h.seq[channel],
		Channel: channel,
		Event:   event,
		Data:    data,
		Time:    time.Now(),
	}

	if h.sticky[event] {
		if h.retained[channel] == nil {
			h.retained[channel] = make(map[string]Envelope)
		}
		h.retained[channel][event] = env
	}

	for sub := range h.subs[channel] {
		select {
		case sub.send <- env:
		default:
			delete(h.subs[channel], sub)
			close(sub.send)
			h.logf("BROADCAST: Dropped slow subscriber on %s at seq %d", channel, env.Seq)
		}
	}
}

// Subscribe registers a new subscriber on channel.
func (h *Hub) Subscribe(channel string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{
		channel: channel,
		send:    make(chan Envelope, h.buffer),
	}

	retained := make([]Envelope, 0, len(h.retained[channel]))
	for _, env := range h.retained[channel] {
		retained = append(retained, env)
	}
	sort.Slice(retained, func(i, j int) bool {
		return retained[i].Seq < retained[j].Seq
	})
	for _, env := range retained {
		sub.send <- env
	}

	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Subscriber]bool)
	}
	h.subs[channel][sub] = true

	return sub
}

// Unsubscribe removes sub. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.channel][sub]; ok {
		delete(h.subs[sub.channel], sub)
		close(sub.send)
	}
}

// Seq returns the sequence number of the last envelope on channel.
func (h *Hub) Seq(channel string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.seq[channel]
}

// Subscribers returns how many subscribers channel currently has.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs[channel])
}
