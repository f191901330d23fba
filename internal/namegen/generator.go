package namegen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"qiming/entity"
	"qiming/lib/apperr"
	"qiming/lib/sl"
)

const (
	totalNames      = 5
	parallelBatches = 2
	batchSize       = 3
)

// Generate produces up to five names. Two oversampling batches of three run
// concurrently; the batches are merged and deduplicated by full name. When
// exactly one batch fails, one synchronous top-up call for the missing two
// names runs, and its failure degrades to the three names already in hand.
// When both batches fail the first error wins.
func (c *Client) Generate(ctx context.Context, params *entity.GenerateParams) ([]entity.NameResult, error) {
	if !c.Configured() {
		c.log.Error("ai api key is not configured")
		return nil, apperr.AiUnavailable()
	}

	t1 := time.Now()
	log := c.log.With(
		slog.String("surname", params.Surname),
		slog.String("gender", params.Gender),
	)
	log.Info("starting parallel generation")

	results := make([][]entity.NameResult, parallelBatches)
	failures := make([]error, parallelBatches)

	var wg sync.WaitGroup
	for i := 0; i < parallelBatches; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot], failures[slot] = c.batch(ctx, params, batchSize, slot+1)
		}(i)
	}
	wg.Wait()

	var succeeded [][]entity.NameResult
	var errs []error
	for i := 0; i < parallelBatches; i++ {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		succeeded = append(succeeded, results[i])
	}

	var names []entity.NameResult
	switch len(succeeded) {
	case parallelBatches:
		names = mergeNames(succeeded[0], succeeded[1])
		log.Info("both batches succeeded",
			slog.Int("before_dedup", len(succeeded[0])+len(succeeded[1])),
			slog.Int("after_dedup", len(names)))
	case 1:
		names = succeeded[0]
		log.Warn("one batch failed, topping up", sl.Err(errs[0]), slog.Int("have", len(names)))
		extra, err := c.batch(ctx, params, totalNames-batchSize, parallelBatches+1)
		if err != nil {
			// partial result beats a hard failure here
			log.Warn("top-up failed, returning partial result", sl.Err(err))
		} else {
			names = mergeNames(names, extra)
		}
	default:
		log.Error("both batches failed", sl.Err(errs[0]))
		return nil, errs[0]
	}

	if len(names) > totalNames {
		names = names[:totalNames]
	}

	log.Info("generation finished",
		slog.Int("names", len(names)),
		slog.Float64("duration", time.Since(t1).Seconds()))
	return names, nil
}
