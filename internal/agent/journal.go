package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal captures every conversation turn to an NDJSON file for debugging.
// All methods are safe on a nil receiver so callers can run unjournaled.
type Journal struct {
	file     *os.File
	mu       sync.Mutex
	eventSeq int
	tripID   string
}

// JournalEvent is one logged line.
type JournalEvent struct {
	Timestamp string         `json:"timestamp"`
	EventSeq  int            `json:"event_seq"`
	EventType string         `json:"event_type"`
	Direction string         `json:"direction"` // "sent" or "received"
	Raw       map[string]any `json:"raw,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewJournal creates a journal for one conversation session. Files live
// under ~/.tripdeck/logs so they never end up committed alongside a project.
func NewJournal(tripID string) (*Journal, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	logDir := filepath.Join(homeDir, ".tripdeck", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	scope := tripID
	if scope == "" {
		scope = "global"
	}
	timestamp := time.Now().Format("20060102-150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("conversation-%s-%s.ndjson", scope, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create journal file: %w", err)
	}

	j := &Journal{file: file, tripID: tripID}

	// Metadata header as the first line for easier debugging
	header := map[string]any{
		"type":      "session_metadata",
		"trip_id":   tripID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"log_path":  logPath,
	}
	if data, err := json.Marshal(header); err == nil {
		j.file.Write(append(data, '\n'))
		j.file.Sync()
	}

	return j, nil
}

// LogSent records an outbound payload (a turn request, an approval decision,
// a clarification submission).
func (j *Journal) LogSent(eventType string, payload any, metadata map[string]any) {
	j.log(eventType, "sent", payload, metadata)
}

// LogReceived records an inbound payload (a routing-service response or
// error).
func (j *Journal) LogReceived(eventType string, payload any, metadata map[string]any) {
	j.log(eventType, "received", payload, metadata)
}

func (j *Journal) log(eventType, direction string, payload any, metadata map[string]any) {
	if j == nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.eventSeq++

	var raw map[string]any
	if m, ok := payload.(map[string]any); ok {
		raw = m
	} else if payload != nil {
		data, _ := json.Marshal(payload)
		json.Unmarshal(data, &raw)
	}

	event := JournalEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		EventSeq:  j.eventSeq,
		EventType: eventType,
		Direction: direction,
		Raw:       raw,
		Metadata:  metadata,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return // skip unserializable events
	}
	j.file.Write(append(data, '\n'))
	j.file.Sync()
}

// Close closes the journal file.
func (j *Journal) Close() error {
	if j == nil || j.file == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
