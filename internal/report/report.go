// Package report renders battle log entries and keeps the append-only log.
package report

import (
	"fmt"
	"slices"
	"sync"

	"github.com/mechcore/firecontrol/pkg/core"
)

// Builder collects the entries of one attack. Entries are appended to a Log
// only when the attack completes.
type Builder struct {
	attack  string
	phase   int
	indent  int
	entries []core.Report
}

// NewBuilder starts a builder for an attack.
func NewBuilder(attack string, phase int) *Builder {
	return &Builder{attack: attack, phase: phase}
}

// Add renders message id with args at the current indentation.
func (b *Builder) Add(id int, subject core.EntityID, args ...any) *Builder {
	text := fmt.Sprintf("message %d", id)
	if tmpl, ok := messages[id]; ok {
		text = fmt.Sprintf(tmpl, args...)
	}
	b.entries = append(b.entries, core.Report{
		Phase:     b.phase,
		Attack:    b.attack,
		Subject:   subject,
		MessageID: id,
		Indent:    b.indent,
		Text:      text,
	})
	return b
}

// Merge appends entries produced elsewhere, nested under the current level.
func (b *Builder) Merge(entries []core.Report) *Builder {
	for _, e := range entries {
		e.Phase = b.phase
		e.Attack = b.attack
		e.Indent += b.indent
		b.entries = append(b.entries, e)
	}
	return b
}

// Indent nests following entries one level deeper.
func (b *Builder) Indent() *Builder {
	b.indent++
	return b
}

// Outdent undoes one Indent.
func (b *Builder) Outdent() *Builder {
	if b.indent > 0 {
		b.indent--
	}
	return b
}

// Entries returns the collected entries.
func (b *Builder) Entries() []core.Report {
	return slices.Clone(b.entries)
}

// Len returns the number of collected entries.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Log is the append-only battle log. Seq numbers start at 1.
type Log struct {
	mu      sync.RWMutex
	entries []core.Report
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append stamps entries with sequence numbers and stores them.
func (l *Log) Append(entries ...core.Report) []core.Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Report, len(entries))
	for i, e := range entries {
		e.Seq = len(l.entries) + 1
		l.entries = append(l.entries, e)
		out[i] = e
	}
	return out
}

// Since returns entries with Seq greater than seq.
func (l *Log) Since(seq int) []core.Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq < 0 {
		seq = 0
	}
	if seq >= len(l.entries) {
		return nil
	}
	return slices.Clone(l.entries[seq:])
}

// All returns every entry.
func (l *Log) All() []core.Report {
	return l.Since(0)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
