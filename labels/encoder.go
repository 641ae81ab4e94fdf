package labels

import (
	"math"
)

// boundaryTolerance absorbs quantization noise in annotated note times (seconds)
const boundaryTolerance = 1e-4

// Encoding is the frame-level label stream of a note sequence.
// Pitches[i] belongs to States[i] and is 0 for silent frames.
type Encoding struct {
	States  []StateVector `json:"states"`
	Pitches []float64     `json:"pitches"`
}

// Len returns the number of encoded frames
func (e Encoding) Len() int {
	return len(e.States)
}

// Counts summarizes the boundary frames of an Encoding
type Counts struct {
	Frames     int `json:"frames"`
	Onsets     int `json:"onsets"`     // frames carrying Onset
	Offsets    int `json:"offsets"`    // frames carrying Offset
	Boundaries int `json:"boundaries"` // frames carrying both, one per merged note pair
}

// Counts tallies onset, offset and merged boundary frames
func (e Encoding) Counts() Counts {
	c := Counts{Frames: len(e.States)}
	for _, s := range e.States {
		onset, offset := s.Has(Onset), s.Has(Offset)
		if onset {
			c.Onsets++
		}
		if offset {
			c.Offsets++
		}
		if onset && offset {
			c.Boundaries++
		}
	}
	return c
}

type frame struct {
	state StateVector
	pitch float64
}

// boundary is the release frame of the most recent note. While open it may still
// be amended into the attack frame of the next note; emitting anything else
// finalizes it.
type boundary struct {
	frame
	open bool
}

// timeline accumulates finalized frames plus at most one pending boundary
type timeline struct {
	frames  []frame
	pending boundary
}

func (t *timeline) len() int {
	if t.pending.open {
		return len(t.frames) + 1
	}
	return len(t.frames)
}

func (t *timeline) emit(f frame) {
	t.settle()
	t.frames = append(t.frames, f)
}

func (t *timeline) release(f frame) {
	t.settle()
	t.pending = boundary{frame: f, open: true}
}

// amend turns the pending release frame into a shared release/attack frame
// for a note of the given pitch. It reports false when no frame is pending.
func (t *timeline) amend(pitch float64) bool {
	if !t.pending.open {
		return false
	}
	t.pending.frame = frame{state: BoundaryState, pitch: pitch}
	return true
}

func (t *timeline) settle() {
	if t.pending.open {
		t.frames = append(t.frames, t.pending.frame)
		t.pending = boundary{}
	}
}

func (t *timeline) encoding() Encoding {
	t.settle()
	enc := Encoding{
		States:  make([]StateVector, len(t.frames)),
		Pitches: make([]float64, len(t.frames)),
	}
	for i, f := range t.frames {
		enc.States[i] = f.state
		enc.Pitches[i] = f.pitch
	}
	return enc
}

// Encode quantizes onset-ordered notes into per-frame state vectors and pitches.
//
// Each note emits silence up to its onset frame, one attack frame, the sustain
// frames before its release and one release frame. A note starting no later
// than the previous note's release frame boundary shares that release frame as
// its own attack frame. Frames after the last release are not emitted.
func Encode(notes []Note) Encoding {
	var tl timeline
	var endTail float64

	for idx, n := range notes {
		onsetFrame := floorDiv(n.Onset, FrameDuration)
		for float64(tl.len()) < onsetFrame {
			tl.emit(frame{state: SilenceState})
		}

		merged := idx > 0 && n.Onset-endTail < boundaryTolerance && tl.amend(n.Pitch)
		if !merged {
			tl.emit(frame{state: AttackState, pitch: n.Pitch})
		}

		tail := float64(tl.len()) * FrameDuration
		endTail = floorDiv(n.Offset(), FrameDuration)*FrameDuration + FrameDuration

		sustain := int(floorDiv(n.Offset()-tail+boundaryTolerance, FrameDuration))
		for range max(sustain, 0) {
			tl.emit(frame{state: SustainState, pitch: n.Pitch})
		}

		tl.release(frame{state: ReleaseState, pitch: n.Pitch})
	}

	return tl.encoding()
}

// floorDiv is floating point floor division computed through fmod, the way the
// annotation tooling quantizes times. It differs from math.Floor(a/b) when a/b
// rounds up across an integer.
func floorDiv(a, b float64) float64 {
	mod := math.Mod(a, b)
	div := (a - mod) / b
	if mod != 0 && (b < 0) != (mod < 0) {
		div -= 1
	}
	if div == 0 {
		return math.Copysign(0, a/b)
	}

	floor := math.Floor(div)
	if div-floor > 0.5 {
		floor += 1
	}
	return floor
}
