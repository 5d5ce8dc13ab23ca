package retrieval

import domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"

// metricsPayload is the search_metrics telemetry body.
type metricsPayload struct {
	Passes     []passPayload        `json:"passes"`
	Counts     domretrieval.Counts  `json:"counts"`
	TimingsMs  map[string]int64     `json:"timingsMs"`
	Overruns   []domretrieval.Phase `json:"overruns,omitempty"`
	Violations []string             `json:"violations,omitempty"`
	Lambda     float64              `json:"lambda"`
	Results    int                  `json:"results"`
}

type passPayload struct {
	Pass        domretrieval.PassKind `json:"pass"`
	ResultCount int                   `json:"resultCount"`
	ElapsedMs   int64                 `json:"elapsedMs"`
	Err         string                `json:"err,omitempty"`
}

func newMetricsPayload(resp Response) metricsPayload {
	m := resp.Metrics
	p := metricsPayload{
		Counts: m.Counts,
		TimingsMs: map[string]int64{
			string(domretrieval.PhaseRetrieval): m.Timings.Retrieval.Milliseconds(),
			string(domretrieval.PhaseSafety):    m.Timings.Safety.Milliseconds(),
			string(domretrieval.PhaseScoring):   m.Timings.Scoring.Milliseconds(),
		},
		Overruns:   m.Overruns,
		Violations: m.Violations,
		Lambda:     m.Lambda,
		Results:    len(resp.Results),
	}
	for _, r := range m.Passes {
		p.Passes = append(p.Passes, passPayload{
			Pass: r.Kind, ResultCount: r.ResultCount, ElapsedMs: r.ElapsedMs(), Err: r.Err,
		})
	}
	return p
}
