// Package logsink ships structured events to the central log collector.
// Emission is fire-and-forget: a bounded buffer feeds a background
// dispatcher, delivery is retried a fixed number of times, and anything that
// still fails (or does not fit the buffer) is dropped. The sink must never
// block or fail the operation that produced the event.
package logsink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type Event struct {
	Service string                 `json:"service"`
	Level   string                 `json:"level"`
	Action  string                 `json:"action"`
	Time    time.Time              `json:"timestamp"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

type Config struct {
	URL         string
	Service     string
	BufferSize  int
	MaxRetries  int
	PostTimeout time.Duration
}

type Emitter struct {
	cfg     Config
	client  *http.Client
	events  chan Event
	wg      sync.WaitGroup
	mu      sync.RWMutex
	dropped atomic.Int64
	closed  bool
}

func NewEmitter(cfg Config) *Emitter {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.PostTimeout <= 0 {
		cfg.PostTimeout = 2 * time.Second
	}
	if cfg.Service == "" {
		cfg.Service = "taskshare"
	}

	e := &Emitter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.PostTimeout},
		events: make(chan Event, cfg.BufferSize),
	}

	e.wg.Add(1)
	go e.dispatch()
	return e
}

// Emit queues an event without ever blocking the caller. Events that do not
// fit the buffer are counted and dropped.
func (e *Emitter) Emit(level, action string, fields map[string]interface{}) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	ev := Event{
		Service: e.cfg.Service,
		Level:   level,
		Action:  action,
		Time:    time.Now().UTC(),
		Fields:  fields,
	}
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded since start.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close drains the buffer and stops the dispatcher. Safe to call more than
// once; Emit becomes a no-op afterwards.
func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.events)
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Emitter) dispatch() {
	defer e.wg.Done()
	for ev := range e.events {
		if e.cfg.URL == "" {
			// Collector not configured: keep local visibility only.
			log.Printf("logsink: %s %s %v", ev.Level, ev.Action, ev.Fields)
			continue
		}
		if err := e.deliver(ev); err != nil {
			e.dropped.Add(1)
		}
	}
}

func (e *Emitter) deliver(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		resp, err := e.client.Post(e.cfg.URL, "application/json", bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return lastErr
}
