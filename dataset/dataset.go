package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/RyanBlaney/sonido-notes/sampling"
)

// Dataset draws training windows from a list of recording sources.
// Files are read again on every access; nothing is cached.
type Dataset struct {
	sources []Source
	sampler *sampling.Sampler
}

// New creates a dataset over already paired sources
func New(sources []Source, sampler *sampling.Sampler) *Dataset {
	return &Dataset{sources: sources, sampler: sampler}
}

// ReadManifest reads a JSON array of sources
func ReadManifest(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var sources []Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	for i, src := range sources {
		if src.Features == "" || src.Notes == "" {
			return nil, fmt.Errorf("manifest %s entry %d: features and notes are required", path, i)
		}
	}
	return sources, nil
}

// Repeat returns a dataset of exactly amount entries, cycling through the sources
func (d *Dataset) Repeat(amount int) *Dataset {
	if amount <= 0 || len(d.sources) == 0 {
		return d
	}

	sources := make([]Source, amount)
	for i := range sources {
		sources[i] = d.sources[i%len(d.sources)]
	}
	return &Dataset{sources: sources, sampler: d.sampler}
}

// Len returns the number of entries
func (d *Dataset) Len() int {
	return len(d.sources)
}

// Sources returns the entries in order
func (d *Dataset) Sources() []Source {
	return d.sources
}

// Get loads entry i and draws one training window from it
func (d *Dataset) Get(i int, rng *rand.Rand) (sampling.Sample, error) {
	if i < 0 || i >= len(d.sources) {
		return sampling.Sample{}, fmt.Errorf("index %d out of range [0, %d)", i, len(d.sources))
	}

	rec, err := Load(d.sources[i])
	if err != nil {
		return sampling.Sample{}, err
	}

	enc := rec.Encode()
	return d.sampler.Sample(rng, rec.ID, rec.Features, enc.States)
}
