package scoring

import (
	"sort"
	"sync/atomic"

	"github.com/kailas-cloud/recipegate/internal/domain/feature"
)

// minMedianSamples is the batch size below which a field keeps its median.
const minMedianSamples = 3

// MedianTable holds imputation values for missing rubric inputs.
type MedianTable struct {
	PrepMinutes          float64
	IngredientCount      float64
	StepCount            float64
	CaloriesPerServing   float64
	ProteinGrams         float64
	AvgInstructionLength float64
	VisualScore          float64
}

// DefaultMedianTable returns the seed values.
func DefaultMedianTable() MedianTable {
	return MedianTable{
		PrepMinutes:          30,
		IngredientCount:      8,
		StepCount:            6,
		CaloriesPerServing:   300,
		ProteinGrams:         15,
		AvgInstructionLength: 50,
		VisualScore:          0.5,
	}
}

// Medians is a copy-on-write median table. Reads never block.
type Medians struct {
	cur atomic.Pointer[MedianTable]
}

// NewMedians creates a table seeded with seed.
func NewMedians(seed MedianTable) *Medians {
	m := &Medians{}
	m.cur.Store(&seed)
	return m
}

// Snapshot returns the current table.
func (m *Medians) Snapshot() MedianTable {
	return *m.cur.Load()
}

// Update recomputes medians from a batch. Fields with fewer than three
// known samples keep their previous value. Returns the new table.
func (m *Medians) Update(batch []feature.Features) MedianTable {
	for {
		old := m.cur.Load()
		next := *old
		apply := func(dst *float64, vals []float64) {
			if len(vals) >= minMedianSamples {
				*dst = median(vals)
			}
		}
		var prep, ingr, steps, kcal, protein, instr, visual []float64
		for i := range batch {
			f := &batch[i]
			if v, ok := f.PrepMinutes.Get(); ok {
				prep = append(prep, float64(v))
			}
			if v, ok := f.IngredientCount.Get(); ok {
				ingr = append(ingr, float64(v))
			}
			if v, ok := f.StepCount.Get(); ok {
				steps = append(steps, float64(v))
			}
			if v, ok := f.CaloriesPerServing.Get(); ok {
				kcal = append(kcal, v)
			}
			if v, ok := f.ProteinGrams.Get(); ok {
				protein = append(protein, v)
			}
			if v, ok := f.AvgInstructionLength.Get(); ok {
				instr = append(instr, v)
			}
			if v, ok := f.VisualScore.Get(); ok {
				visual = append(visual, v)
			}
		}
		apply(&next.PrepMinutes, prep)
		apply(&next.IngredientCount, ingr)
		apply(&next.StepCount, steps)
		apply(&next.CaloriesPerServing, kcal)
		apply(&next.ProteinGrams, protein)
		apply(&next.AvgInstructionLength, instr)
		apply(&next.VisualScore, visual)

		if m.cur.CompareAndSwap(old, &next) {
			return next
		}
	}
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
