package upload

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTransition is returned for a step change the machine does not
// allow.
var ErrInvalidTransition = errors.New("invalid upload step transition")

// transitions lists the allowed moves. Success has none: a finished job is
// discarded, not reused.
var transitions = map[Step][]Step{
	StepIdle:        {StepCompressing, StepUploading},
	StepCompressing: {StepIdle, StepUploading},
	StepUploading:   {StepProcessing, StepError},
	StepProcessing:  {StepSuccess, StepError},
	StepError:       {StepIdle},
}

func allowed(from, to Step) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// State is a point-in-time view of a tracker.
type State struct {
	Step     Step
	Progress int
	Err      string
}

// Transition is delivered to observers. Progress updates inside the
// uploading step arrive with From == To.
type Transition struct {
	From     Step
	To       Step
	Progress int
	Err      string
	// Elapsed is the time spent in From, set on step changes only.
	Elapsed time.Duration
}

// Observer reacts to transitions. Observers run synchronously after the
// tracker lock is released and must not block.
type Observer func(Transition)

// Tracker is the step machine of one upload:
//
//	idle -> compressing -> idle
//	idle|compressing -> uploading -> processing -> success
//	uploading|processing -> error -> idle (retry)
//
// Progress is only meaningful while uploading and never decreases within
// one attempt.
type Tracker struct {
	mu        sync.Mutex
	step      Step
	progress  int
	err       string
	enteredAt time.Time
	observers []Observer
	now       func() time.Time
}

// NewTracker creates a tracker in the idle step.
func NewTracker(observers ...Observer) *Tracker {
	return &Tracker{
		step:      StepIdle,
		enteredAt: time.Now(),
		observers: observers,
		now:       time.Now,
	}
}

// Subscribe adds an observer.
func (t *Tracker) Subscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{Step: t.step, Progress: t.progress, Err: t.err}
}

// StartCompressing moves idle to compressing.
func (t *Tracker) StartCompressing() error {
	return t.move(StepCompressing, "")
}

// FinishCompressing returns to idle after compression, whether it
// succeeded or fell back to the original.
func (t *Tracker) FinishCompressing() error {
	return t.move(StepIdle, "")
}

// StartUploading begins a transfer with progress at 0.
func (t *Tracker) StartUploading() error {
	return t.move(StepUploading, "")
}

// StartProcessing marks the transfer done and the record call started.
func (t *Tracker) StartProcessing() error {
	return t.move(StepProcessing, "")
}

// Succeed finishes the job.
func (t *Tracker) Succeed() error {
	return t.move(StepSuccess, "")
}

// Fail records msg and moves to error.
func (t *Tracker) Fail(msg string) error {
	return t.move(StepError, msg)
}

// Retry clears the error and progress and returns to idle.
func (t *Tracker) Retry() error {
	return t.move(StepIdle, "")
}

// SetProgress updates progress while uploading. Values outside 0..100 are
// clamped and values below the current one are ignored.
func (t *Tracker) SetProgress(pct int) {
	pct = min(max(pct, 0), 100)

	t.mu.Lock()
	if t.step != StepUploading || pct <= t.progress {
		t.mu.Unlock()
		return
	}
	t.progress = pct
	tr := Transition{From: StepUploading, To: StepUploading, Progress: pct}
	obs := t.observers
	t.mu.Unlock()

	notify(obs, tr)
}

func (t *Tracker) move(to Step, errMsg string) error {
	t.mu.Lock()
	from := t.step
	if !allowed(from, to) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	now := t.now()
	elapsed := now.Sub(t.enteredAt)
	t.step = to
	t.enteredAt = now
	t.err = errMsg

	switch to {
	case StepUploading, StepIdle:
		t.progress = 0
	case StepProcessing, StepSuccess:
		t.progress = 100
	}

	tr := Transition{From: from, To: to, Progress: t.progress, Err: errMsg, Elapsed: elapsed}
	obs := t.observers
	t.mu.Unlock()

	notify(obs, tr)
	return nil
}

func notify(obs []Observer, tr Transition) {
	for _, o := range obs {
		o(tr)
	}
}
