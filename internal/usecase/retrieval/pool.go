package retrieval

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// mapOrdered applies fn to every item on at most workers goroutines.
// out[i] corresponds to in[i].
func mapOrdered[In, Out any](workers int, in []In, fn func(In) Out) []Out {
	out := make([]Out, len(in))
	if len(in) == 0 {
		return out
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range in {
		g.Go(func() error {
			out[i] = fn(in[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}
