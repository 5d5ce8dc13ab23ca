package retrieval

import "time"

// Bucket is the mutually exclusive classification of a processed candidate.
type Bucket string

// Candidate buckets.
const (
	BucketNonRecipe Bucket = "non_recipe_filtered"
	BucketOK        Bucket = "safety_ok"
	BucketNG        Bucket = "safety_ng"
	BucketAmbiguous Bucket = "safety_ambiguous"
)

// Counts are per-request candidate counters.
// RecipeTypePass == SafetyOK + SafetyNG + SafetyAmbiguous.
type Counts struct {
	RetrievalTotal    int `json:"retrievalTotal"`
	RecipeTypePass    int `json:"recipeTypePass"`
	SafetyOK          int `json:"safetyOk"`
	SafetyNG          int `json:"safetyNg"`
	SafetyAmbiguous   int `json:"safetyAmbiguous"`
	NonRecipeFiltered int `json:"nonRecipeFiltered"`
}

// Add records one candidate in bucket b.
func (c *Counts) Add(b Bucket) {
	switch b {
	case BucketNonRecipe:
		c.NonRecipeFiltered++
		return
	case BucketOK:
		c.SafetyOK++
	case BucketNG:
		c.SafetyNG++
	case BucketAmbiguous:
		c.SafetyAmbiguous++
	}
	c.RecipeTypePass++
}

// Processed returns the number of bucketed candidates.
func (c Counts) Processed() int { return c.RecipeTypePass + c.NonRecipeFiltered }

// Phase is a budgeted stage of the pipeline.
type Phase string

// Budgeted phases.
const (
	PhaseRetrieval Phase = "retrieval"
	PhaseSafety    Phase = "safety"
	PhaseScoring   Phase = "scoring"
)

// Timings are per-phase wall-clock durations.
type Timings struct {
	Retrieval time.Duration
	Safety    time.Duration
	Scoring   time.Duration
}

// Of returns the duration recorded for p.
func (t Timings) Of(p Phase) time.Duration {
	switch p {
	case PhaseRetrieval:
		return t.Retrieval
	case PhaseSafety:
		return t.Safety
	default:
		return t.Scoring
	}
}

// Budgets are observability-only phase limits; overruns are recorded,
// never enforced.
type Budgets struct {
	Retrieval time.Duration
	Safety    time.Duration
	Scoring   time.Duration
}

// Overruns lists the phases of t that exceeded b. Zero budgets are unlimited.
func (b Budgets) Overruns(t Timings) []Phase {
	var out []Phase
	for _, pb := range []struct {
		phase  Phase
		budget time.Duration
	}{
		{PhaseRetrieval, b.Retrieval},
		{PhaseSafety, b.Safety},
		{PhaseScoring, b.Scoring},
	} {
		if pb.budget > 0 && t.Of(pb.phase) > pb.budget {
			out = append(out, pb.phase)
		}
	}
	return out
}

// Metrics is the observability record of one search request.
type Metrics struct {
	Passes   []PassRecord
	Counts   Counts
	Timings  Timings
	Overruns []Phase
	// Violations are diversity drops reported by the reranker.
	Violations []string
	Lambda     float64
}
