// Package feature transforms raw numeric song attributes into the normalized
// vector space the content recommender indexes. Fit computes per-attribute
// imputation and standardization statistics; Transform only ever applies
// frozen statistics, so vectors produced at serve time match the training
// distribution exactly.
package feature

import (
	"fmt"
	"math"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
)

// AttributeOrder fixes the mapping from audio attribute to vector dimension.
// Changing this order invalidates every persisted content index.
var AttributeOrder = []string{
	domain.AttrDanceability,
	domain.AttrEnergy,
	domain.AttrValence,
	domain.AttrTempo,
	domain.AttrAcousticness,
	domain.AttrInstrumentalness,
	domain.AttrSpeechiness,
	domain.AttrLiveness,
	domain.AttrPopularity,
}

// Stats holds the frozen statistics for one attribute.
type Stats struct {
	// Fill is the mean of observed values, substituted for missing ones.
	Fill float64 `json:"fill"`
	// Mean and Scale standardize the imputed column to zero mean, unit
	// variance. Scale is 1 for constant or fully-missing columns.
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// Pipeline carries frozen per-attribute statistics. It is immutable after
// Fit and safe for concurrent Transform calls.
type Pipeline struct {
	Attrs []string `json:"attrs"`
	Stats []Stats  `json:"stats"`
}

// Fit computes imputation and scaling statistics over records. It fails with
// domain.ErrInsufficientData for fewer than 2 records, since a standard
// deviation over one sample is undefined.
func Fit(records []domain.Song) (*Pipeline, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("feature: fit over %d records: %w", len(records), domain.ErrInsufficientData)
	}

	p := &Pipeline{
		Attrs: append([]string(nil), AttributeOrder...),
		Stats: make([]Stats, len(AttributeOrder)),
	}

	n := float64(len(records))
	for i, attr := range p.Attrs {
		var sum float64
		var observed int
		for _, r := range records {
			if v, ok := r.Audio[attr]; ok {
				sum += v
				observed++
			}
		}
		st := Stats{Scale: 1}
		if observed == 0 {
			// Attribute absent from the whole catalog: freeze identity stats
			// so its dimension contributes nothing.
			p.Stats[i] = st
			continue
		}
		st.Fill = sum / float64(observed)

		// Substituting the column mean for gaps leaves the column mean
		// unchanged, so the standardization mean equals the fill value.
		st.Mean = st.Fill
		var ss float64
		for _, r := range records {
			v := st.Fill
			if x, ok := r.Audio[attr]; ok {
				v = x
			}
			d := v - st.Mean
			ss += d * d
		}
		if sigma := math.Sqrt(ss / n); sigma > 0 {
			st.Scale = sigma
		}
		p.Stats[i] = st
	}
	return p, nil
}

// Vector applies the frozen statistics to one record. Missing attributes
// receive the frozen fill value, never a recomputed one.
func (p *Pipeline) Vector(s domain.Song) []float32 {
	out := make([]float32, len(p.Attrs))
	for i, attr := range p.Attrs {
		st := p.Stats[i]
		v := st.Fill
		if x, ok := s.Audio[attr]; ok {
			v = x
		}
		out[i] = float32((v - st.Mean) / st.Scale)
	}
	return out
}

// Transform maps records into the frozen vector space, one row per record.
func (p *Pipeline) Transform(records []domain.Song) [][]float32 {
	matrix := make([][]float32, len(records))
	for i, r := range records {
		matrix[i] = p.Vector(r)
	}
	return matrix
}

// Dims returns the dimensionality of produced vectors.
func (p *Pipeline) Dims() int { return len(p.Attrs) }
