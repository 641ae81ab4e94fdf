package features

import (
	"fmt"
	"io"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Load reads a 2-D .npy array (channels x frames) of float32 or float64 values.
// Both C and Fortran ordered arrays are accepted.
func Load(r io.Reader) (*mat.Dense, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}

	shape := npy.Header.Descr.Shape
	if len(shape) != 2 || shape[0] < 1 || shape[1] < 1 {
		return nil, fmt.Errorf("expected a non-empty 2-D array, got shape %v", shape)
	}
	rows, cols := shape[0], shape[1]

	var data []float64
	switch npy.Header.Descr.Type {
	case "<f8":
		if err := npy.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read float64 data: %w", err)
		}
	case "<f4":
		var raw []float32
		if err := npy.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read float32 data: %w", err)
		}
		data = make([]float64, len(raw))
		for i, v := range raw {
			data[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q", npy.Header.Descr.Type)
	}

	if len(data) != rows*cols {
		return nil, fmt.Errorf("npy data has %d values, shape %v needs %d", len(data), shape, rows*cols)
	}

	if npy.Header.Descr.Fortran {
		m := mat.NewDense(rows, cols, nil)
		m.Copy(mat.NewDense(cols, rows, data).T())
		return m, nil
	}
	return mat.NewDense(rows, cols, data), nil
}

// LoadFile reads the .npy feature matrix at path
func LoadFile(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open features %s: %w", path, err)
	}
	defer f.Close()

	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load features %s: %w", path, err)
	}
	return m, nil
}

// Save writes m as a float64 .npy array
func Save(w io.Writer, m mat.Matrix) error {
	dense := mat.DenseCopyOf(m)
	if err := npyio.Write(w, dense); err != nil {
		return fmt.Errorf("failed to write npy: %w", err)
	}
	return nil
}

// SaveFile writes m as a float64 .npy array at path
func SaveFile(path string, m mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Save(f, m); err != nil {
		f.Close()
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return f.Close()
}
