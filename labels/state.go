package labels

// FrameDuration is the width of one label frame in seconds (50 frames per second).
// It must match the hop of the upstream feature extraction.
const FrameDuration = 0.02

// NumAttributes is the length of a StateVector
const NumAttributes = 6

// Attribute indexes one element of a StateVector
type Attribute int

const (
	Silent Attribute = iota
	Active
	Onset
	NotOnset
	Offset
	NotOffset
)

func (a Attribute) String() string {
	switch a {
	case Silent:
		return "silent"
	case Active:
		return "active"
	case Onset:
		return "onset"
	case NotOnset:
		return "not_onset"
	case Offset:
		return "offset"
	case NotOffset:
		return "not_offset"
	default:
		return "unknown"
	}
}

// Pair is one of the three mutually exclusive attribute pairs
type Pair int

const (
	PairActivity Pair = iota // (Silent, Active)
	PairOnset                // (Onset, NotOnset)
	PairOffset               // (Offset, NotOffset)
)

// NumPairs is the number of attribute pairs in a StateVector
const NumPairs = 3

// Attributes returns the two attributes making up the pair
func (p Pair) Attributes() (Attribute, Attribute) {
	return Attribute(2 * p), Attribute(2*p + 1)
}

func (p Pair) String() string {
	switch p {
	case PairActivity:
		return "activity"
	case PairOnset:
		return "onset"
	case PairOffset:
		return "offset"
	default:
		return "unknown"
	}
}

// StateVector is the per-frame label: three complementary {0,1} pairs
// (Silent, Active), (Onset, NotOnset), (Offset, NotOffset)
type StateVector [NumAttributes]uint8

var (
	// SilenceState marks a frame outside every note
	SilenceState = StateVector{1, 0, 0, 1, 0, 1}
	// AttackState marks the onset frame of a note
	AttackState = StateVector{0, 1, 1, 0, 0, 1}
	// SustainState marks a frame strictly inside a note
	SustainState = StateVector{0, 1, 0, 1, 0, 1}
	// ReleaseState marks the offset frame of a note
	ReleaseState = StateVector{0, 1, 0, 1, 1, 0}
	// BoundaryState marks a frame that releases one note and attacks the next
	BoundaryState = StateVector{0, 1, 1, 0, 1, 0}
)

// Has reports whether the attribute is set
func (s StateVector) Has(a Attribute) bool {
	return s[a] == 1
}

// Valid reports whether exactly one member of every pair is set
func (s StateVector) Valid() bool {
	for p := range Pair(NumPairs) {
		a, b := p.Attributes()
		if s[a]+s[b] != 1 || s[a] > 1 || s[b] > 1 {
			return false
		}
	}
	return true
}

// Float64 returns the vector as float64 values
func (s StateVector) Float64() []float64 {
	out := make([]float64, NumAttributes)
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// Scores holds a classifier's raw per-attribute outputs for one frame,
// indexed like a StateVector
type Scores [NumAttributes]float64
