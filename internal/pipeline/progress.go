package pipeline

import (
	"time"

	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/synthesize"
)

// Stage is a step of a report run
type Stage string

const (
	StageCategorizing Stage = "categorizing"
	StageSection      Stage = "section"
	StageComplete     Stage = "complete"
)

// Event reports progress of a run. Section, Index, Findings and Outcome are
// set for StageSection only.
type Event struct {
	Stage    Stage
	Section  model.SectionKey
	Index    int
	Total    int
	Findings int
	Outcome  synthesize.Outcome
	Elapsed  time.Duration
}

// Observer receives progress events. Calls are serialized.
type Observer func(Event)

func (p *Pipeline) emit(e Event) {
	if p.observer == nil {
		return
	}
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	p.observer(e)
}
