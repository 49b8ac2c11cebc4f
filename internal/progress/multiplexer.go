// Package progress shows one indicator per stage a module reports.
package progress

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
)

// Scale is the integer range fractions are mapped onto.
const Scale = 1000

const labelWidth = 16

type Indicator interface {
	SetCurrent(current int64)
	Abort(drop bool)
}

// Display creates indicators. Implementations must tolerate calls from
// any goroutine; the Multiplexer serializes them. Writes print lines
// above the indicators and must not be made after Wait.
type Display interface {
	io.Writer
	Add(label string, total int64) Indicator
	Wait()
}

type entry struct {
	ind Indicator
	pos int64
}

// Multiplexer maps stage names to indicators. Report may be called
// concurrently from threads the host did not create.
type Multiplexer struct {
	mu      sync.Mutex
	display Display
	entries map[string]*entry
	closed  bool
}

// New returns a Multiplexer drawing on display. A nil display tracks
// stages without drawing anything.
func New(display Display) *Multiplexer {
	return &Multiplexer{display: display, entries: make(map[string]*entry)}
}

func (m *Multiplexer) Report(stage string, fraction float64) {
	pos := position(fraction)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[stage]; ok {
		e.pos = pos
		if e.ind != nil {
			e.ind.SetCurrent(pos)
		}
		return
	}

	e := &entry{pos: pos}
	if m.display != nil {
		e.ind = m.display.Add(Label(stage), Scale)
		e.ind.SetCurrent(pos)
	}
	m.entries[stage] = e
}

func (m *Multiplexer) Stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.entries))
	for name := range m.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *Multiplexer) Position(stage string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[stage]
	if !ok {
		return 0, false
	}
	return e.pos, true
}

// Reset removes every indicator so the next work unit starts clean.
func (m *Multiplexer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ind != nil {
			e.ind.Abort(true)
		}
	}
	clear(m.entries)
}

// Close resets and waits for the display to shut down. Later calls do
// nothing.
func (m *Multiplexer) Close() {
	m.Reset()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	if m.display != nil {
		m.display.Wait()
	}
}

// Label right-aligns a stage name so bars line up.
func Label(stage string) string {
	return fmt.Sprintf("%*s", labelWidth, stage)
}

func position(fraction float64) int64 {
	if math.IsNaN(fraction) || fraction <= 0 {
		return 0
	}
	if fraction >= 1 {
		return Scale
	}
	return int64(fraction * Scale)
}
