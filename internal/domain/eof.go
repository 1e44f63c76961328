package domain

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// EOFResult holds the leading modes of an EOF decomposition.
type EOFResult struct {
	// Components[k] is mode k over the full (unmasked and masked) feature
	// vector; masked features are NaN.
	Components [][]float64
	// PCs[i][k] is the amplitude of mode k in sample i.
	PCs                    [][]float64
	SingularValues         []float64
	ExplainedVariance      []float64
	ExplainedVarianceRatio []float64
}

// Modes returns the number of modes retained.
func (r EOFResult) Modes() int { return len(r.Components) }

// PCSeries returns the principal component time series of mode k.
func (r EOFResult) PCSeries(k int) []float64 {
	out := make([]float64, len(r.PCs))
	for i := range r.PCs {
		out[i] = r.PCs[i][k]
	}
	return out
}

// ComputeEOF decomposes samples (rows: ensemble members or time steps; columns:
// flattened grid points) into its leading modes. Columns with a NaN in any
// row are excluded and reported as NaN in the components. weights, if non-nil,
// scale the anomaly columns before decomposition; components are returned in
// unweighted units.
func ComputeEOF(samples [][]float64, weights []float64, modes int) (EOFResult, error) {
	n := len(samples)
	if n < 2 {
		return EOFResult{}, errors.New("eof: at least two samples are required")
	}
	m := len(samples[0])
	if m == 0 {
		return EOFResult{}, errors.New("eof: samples have no features")
	}
	for i, row := range samples {
		if len(row) != m {
			return EOFResult{}, fmt.Errorf("eof: sample %d has %d features, want %d", i, len(row), m)
		}
	}
	if weights != nil && len(weights) != m {
		return EOFResult{}, fmt.Errorf("eof: %d weights for %d features", len(weights), m)
	}
	if modes < 1 {
		return EOFResult{}, fmt.Errorf("eof: modes must be positive, got %d", modes)
	}

	valid := validColumns(samples, weights)
	if len(valid) == 0 {
		return EOFResult{}, errors.New("eof: every feature is masked")
	}

	anom := mat.NewDense(n, len(valid), nil)
	col := make([]float64, n)
	for j, c := range valid {
		for i := range n {
			col[i] = samples[i][c]
		}
		mean := stat.Mean(col, nil)
		w := 1.0
		if weights != nil {
			w = weights[c]
		}
		for i := range n {
			anom.Set(i, j, (col[i]-mean)*w)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(anom, mat.SVDThin); !ok {
		return EOFResult{}, errors.New("eof: singular value decomposition failed")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	k := min(modes, len(s))
	total := floats.Dot(s, s)

	res := EOFResult{
		Components:             make([][]float64, k),
		PCs:                    make([][]float64, n),
		SingularValues:         append([]float64(nil), s[:k]...),
		ExplainedVariance:      make([]float64, k),
		ExplainedVarianceRatio: make([]float64, k),
	}
	for i := range n {
		res.PCs[i] = make([]float64, k)
	}

	for mode := range k {
		comp := make([]float64, m)
		for c := range comp {
			comp[c] = math.NaN()
		}
		for j, c := range valid {
			val := v.At(j, mode)
			if weights != nil {
				val /= weights[c]
			}
			comp[c] = val
		}
		sign := dominantSign(comp)
		for c := range comp {
			comp[c] *= sign
		}
		res.Components[mode] = comp
		for i := range n {
			res.PCs[i][mode] = sign * u.At(i, mode) * s[mode]
		}
		res.ExplainedVariance[mode] = s[mode] * s[mode] / float64(n-1)
		if total > 0 {
			res.ExplainedVarianceRatio[mode] = s[mode] * s[mode] / total
		}
	}
	return res, nil
}

// validColumns returns the indices of columns without NaN and with a usable weight.
func validColumns(samples [][]float64, weights []float64) []int {
	m := len(samples[0])
	out := make([]int, 0, m)
	for c := range m {
		if weights != nil && (weights[c] == 0 || math.IsNaN(weights[c])) {
			continue
		}
		ok := true
		for i := range samples {
			if math.IsNaN(samples[i][c]) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// dominantSign returns the sign that makes the largest-magnitude finite loading positive.
func dominantSign(comp []float64) float64 {
	best := 0.0
	for _, v := range comp {
		if math.IsNaN(v) {
			continue
		}
		if math.Abs(v) > math.Abs(best) {
			best = v
		}
	}
	if best < 0 {
		return -1
	}
	return 1
}

// LatitudeWeights returns sqrt(cos(lat)) weights for a grid flattened in
// row-major (lat, lon) order with nx longitudes per row.
func LatitudeWeights(lats []float64, nx int) []float64 {
	w := make([]float64, 0, len(lats)*nx)
	for _, lat := range lats {
		c := math.Cos(lat * math.Pi / 180)
		if c < 0 {
			c = 0
		}
		v := math.Sqrt(c)
		for range nx {
			w = append(w, v)
		}
	}
	return w
}
