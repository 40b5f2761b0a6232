package arxiv

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LoggingInterceptor logs every search that passes through the client:
// the query window at debug level on success, and a warning on failure.
func LoggingInterceptor(logger zerolog.Logger) Interceptor {
	return func(ctx context.Context, params SearchParams, next SearchFunc) (SearchResults, error) {
		start := time.Now()
		results, err := next(ctx, params)
		duration := time.Since(start)

		if err != nil {
			logger.Warn().
				Err(err).
				Str("query", params.Query).
				Int("start", params.Start).
				Int("max_results", params.MaxResults).
				Dur("duration", duration).
				Msg("arxiv search failed")
			return results, err
		}

		logger.Debug().
			Str("query", params.Query).
			Int("start", params.Start).
			Int("max_results", params.MaxResults).
			Int("total_results", results.TotalResults).
			Int("entries", len(results.Entries)).
			Dur("duration", duration).
			Msg("arxiv search")
		return results, nil
	}
}

// ProgressInterceptor calls fn after every successful page with the number
// of entries in that page and the total reported by the API.
func ProgressInterceptor(fn func(start, fetched, total int)) Interceptor {
	return func(ctx context.Context, params SearchParams, next SearchFunc) (SearchResults, error) {
		results, err := next(ctx, params)
		if err == nil {
			fn(params.Start, len(results.Entries), results.TotalResults)
		}
		return results, err
	}
}
