package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one attempt in a batch. Exactly one of
// Result and Err is set.
type BatchResult struct {
	Result *Result
	Err    error
}

// RecordBatch records attempts with students processed in parallel. The
// attempts of one student share keys, so they are applied one after
// another in input order. Results are returned by input index; a failing
// attempt does not stop the others.
func (s *Service) RecordBatch(ctx context.Context, attempts []Attempt) ([]BatchResult, error) {
	results := make([]BatchResult, len(attempts))

	var order []string
	byStudent := make(map[string][]int)
	for i, a := range attempts {
		if _, ok := byStudent[a.StudentID]; !ok {
			order = append(order, a.StudentID)
		}
		byStudent[a.StudentID] = append(byStudent[a.StudentID], i)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for _, student := range order {
		idx := byStudent[student]
		g.Go(func() error {
			for _, i := range idx {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := s.RecordAttempt(ctx, attempts[i])
				results[i] = BatchResult{Result: res, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.log.Info("batch recorded", "attempts", len(attempts), "students", len(order), "failed", failed)
	return results, nil
}
