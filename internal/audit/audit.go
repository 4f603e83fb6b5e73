// Package audit keeps an append-only JSONL history of reconcile outcomes and check results.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/vpsctl/internal/model"
)

// DefaultPath is used when settings.audit_log is empty.
const DefaultPath = "/var/log/vpsctl/history.log"

// Entry records a single operation.
type Entry struct {
	Time     time.Time `json:"time"`
	RunID    string    `json:"run_id,omitempty"`
	Kind     string    `json:"kind"` // "resource" | "check"
	Name     string    `json:"name"`
	Group    string    `json:"group,omitempty"`
	Outcome  string    `json:"outcome"`
	Initial  string    `json:"initial,omitempty"`
	Final    string    `json:"final,omitempty"`
	Action   bool      `json:"action,omitempty"`
	Duration string    `json:"duration,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Log appends entries to a JSONL file.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a Log writing to path, or DefaultPath when empty.
func New(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path, now: func() time.Time { return time.Now().UTC() }}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append writes entries in order.
func (l *Log) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if e.Time.IsZero() {
			e.Time = l.now()
		}
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode audit entry: %w", err)
		}
	}
	return w.Flush()
}

// FromOutcome converts a reconcile outcome into an entry.
func FromOutcome(runID string, o model.RunOutcome) Entry {
	e := Entry{
		Time:     o.Timestamp,
		RunID:    runID,
		Kind:     "resource",
		Name:     o.ResourceID,
		Group:    o.Group,
		Outcome:  string(o.Status),
		Initial:  string(o.InitialState),
		Final:    string(o.FinalState),
		Action:   o.ActionTaken,
		Duration: o.Duration.String(),
	}
	if o.Error != nil {
		e.Error = o.Error.Error()
	}
	return e
}

// FromCheck converts a check result into an entry.
func FromCheck(runID string, r model.CheckResult) Entry {
	e := Entry{
		RunID:   runID,
		Kind:    "check",
		Name:    r.Name,
		Group:   r.Group,
		Outcome: "failed",
	}
	if r.Passed {
		e.Outcome = "passed"
	}
	if r.Error != nil {
		e.Error = r.Error.Error()
	} else if !r.Passed {
		e.Error = r.Detail
	}
	return e
}

// Read loads entries, optionally filtered by name, returning the last limit (all if limit <= 0).
func (l *Log) Read(nameFilter string, limit int) ([]Entry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // skip malformed lines
		}
		if nameFilter != "" && e.Name != nameFilter {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
