package metrics

import "time"

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func RecordCacheHit(cacheName string) {
	Get().CacheHitsTotal.WithLabelValues(cacheName).Inc()
}

func RecordCacheMiss(cacheName string) {
	Get().CacheMissesTotal.WithLabelValues(cacheName).Inc()
}

func RecordRateLimitExceeded(endpoint, method string) {
	Get().RateLimitExceededTotal.WithLabelValues(endpoint, method).Inc()
}

func RecordDatabaseQuery(queryType, table string, duration time.Duration, err error) {
	m := Get()
	m.DatabaseQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
	m.DatabaseQueriesTotal.WithLabelValues(queryType, table, status(err)).Inc()
}

// RecordFeedGeneration observes one composed page. feedType is "hybrid"
// or "cold_start".
func RecordFeedGeneration(feedType string, duration time.Duration, friends, interests int) {
	m := Get()
	m.FeedGenerationTime.WithLabelValues(feedType).Observe(duration.Seconds())
	m.FeedPoolSize.WithLabelValues("friends").Observe(float64(friends))
	m.FeedPoolSize.WithLabelValues("interests").Observe(float64(interests))
}

// RecordInteraction counts a like, repost, comment or follow toggle.
// action is "add" or "remove".
func RecordInteraction(kind, action string) {
	Get().InteractionsTotal.WithLabelValues(kind, action).Inc()
}

func RecordRealtimePublish(event string, err error) {
	Get().RealtimePublishTotal.WithLabelValues(event, status(err)).Inc()
}

func RecordSearch(backend string, err error) {
	Get().SearchRequestsTotal.WithLabelValues(backend, status(err)).Inc()
}

func RecordCounterDrift(rows int) {
	Get().CounterDriftTotal.Add(float64(rows))
}

func RecordError(errorType, endpoint string) {
	Get().ErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}
