package rerank

import "github.com/kailas-cloud/recipegate/internal/domain/ranking"

// Stats summarizes the diversity of a reranked list.
type Stats struct {
	UniqueDomains        int
	DomainDiversityRatio float64
	AvgTitleSimilarity   float64
	Lambda               float64
}

func computeStats(results []ranking.Result, lambda float64) Stats {
	st := Stats{Lambda: lambda}
	if len(results) == 0 {
		return st
	}
	domains := make(map[string]struct{}, len(results))
	for _, r := range results {
		domains[r.Domain] = struct{}{}
	}
	st.UniqueDomains = len(domains)
	st.DomainDiversityRatio = float64(len(domains)) / float64(len(results))

	var sum float64
	pairs := 0
	for i := range results {
		for j := i + 1; j < len(results); j++ {
			sum += TitleSimilarity(results[i].Document.Title(), results[j].Document.Title())
			pairs++
		}
	}
	if pairs > 0 {
		st.AvgTitleSimilarity = sum / float64(pairs)
	}
	return st
}
