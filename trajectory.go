package fishswarm

import (
	"iter"
	"sync"
)

// A Trajectory is the append-only sequence of frames of a run.
//
// Frames handed out by a Trajectory share memory with it and must be
// treated as read-only. It is safe to read a Trajectory while the
// simulation appends to it.
type Trajectory struct {
	mu     sync.RWMutex
	frames []Frame
}

// NewTrajectory returns an empty trajectory.
func NewTrajectory() *Trajectory {
	return new(Trajectory)
}

// Append adds a frame at the end of the trajectory.
// The trajectory takes ownership of f.Particles.
func (t *Trajectory) Append(f Frame) {
	t.mu.Lock()
	t.frames = append(t.frames, f)
	t.mu.Unlock()
}

// Len returns the number of frames.
func (t *Trajectory) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.frames)
}

// Frame returns the i-th frame. It panics if i is out of range.
func (t *Trajectory) Frame(i int) Frame {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frames[i]
}

// Last returns the most recent frame, if any.
func (t *Trajectory) Last() (Frame, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.frames) == 0 {
		return Frame{}, false
	}
	return t.frames[len(t.frames)-1], true
}

// Frames returns a lazy sequence of (index, frame) pairs.
// Each call starts over from the first frame; frames appended while
// iterating are visited too.
func (t *Trajectory) Frames() iter.Seq2[int, Frame] {
	return t.Every(1)
}

// Every is like Frames but only yields every k-th frame, starting with the
// first. It is meant for renderers that subsample the run.
func (t *Trajectory) Every(k int) iter.Seq2[int, Frame] {
	k = max(k, 1)
	return func(yield func(int, Frame) bool) {
		for i := 0; ; i += k {
			t.mu.RLock()
			if i >= len(t.frames) {
				t.mu.RUnlock()
				return
			}
			f := t.frames[i]
			t.mu.RUnlock()
			if !yield(i, f) {
				return
			}
		}
	}
}

// Track returns the history of particle id across all frames.
func (t *Trajectory) Track(id int) []Particle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	track := make([]Particle, 0, len(t.frames))
	for _, f := range t.frames {
		if id >= 0 && id < len(f.Particles) {
			track = append(track, f.Particles[id])
		}
	}
	return track
}
