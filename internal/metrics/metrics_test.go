package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestInitializeIsIdempotent(t *testing.T) {
	assert.Same(t, Initialize(), Get())
}

func TestRecordInteraction(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.InteractionsTotal.WithLabelValues("like", "add"))
	RecordInteraction("like", "add")
	RecordInteraction("like", "add")
	assert.Equal(t, before+2, testutil.ToFloat64(m.InteractionsTotal.WithLabelValues("like", "add")))
}

func TestRecordSearchStatus(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.SearchRequestsTotal.WithLabelValues("elasticsearch", "error"))
	RecordSearch("elasticsearch", errors.New("down"))
	assert.Equal(t, before+1, testutil.ToFloat64(m.SearchRequestsTotal.WithLabelValues("elasticsearch", "error")))
}

func TestRecordFeedGeneration(t *testing.T) {
	RecordFeedGeneration("hybrid", 15*time.Millisecond, 16, 4)
	assert.Equal(t, 1, testutil.CollectAndCount(&Get().FeedGenerationTime, "feed_generation_duration_seconds"))
}

func TestRecordCounterDrift(t *testing.T) {
	before := testutil.ToFloat64(Get().CounterDriftTotal)
	RecordCounterDrift(3)
	assert.Equal(t, before+3, testutil.ToFloat64(Get().CounterDriftTotal))
}

func TestGORMPluginRecordsQueries(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Use(GORMPlugin()))

	type widget struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&widget{}))

	m := Get()
	inserts := testutil.ToFloat64(m.DatabaseQueriesTotal.WithLabelValues("insert", "widgets", "success"))
	selects := testutil.ToFloat64(m.DatabaseQueriesTotal.WithLabelValues("select", "widgets", "success"))

	require.NoError(t, db.Create(&widget{Name: "a"}).Error)
	var got []widget
	require.NoError(t, db.Find(&got).Error)
	// a miss is not a failure
	assert.ErrorIs(t, db.First(&widget{}, 999).Error, gorm.ErrRecordNotFound)

	assert.Equal(t, inserts+1, testutil.ToFloat64(m.DatabaseQueriesTotal.WithLabelValues("insert", "widgets", "success")))
	assert.Equal(t, selects+2, testutil.ToFloat64(m.DatabaseQueriesTotal.WithLabelValues("select", "widgets", "success")))
	assert.Positive(t, testutil.CollectAndCount(&m.DatabaseQueryDuration, "database_query_duration_seconds"))
}

func TestRecordRealtimePublish(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.RealtimePublishTotal.WithLabelValues("like", "error"))
	RecordRealtimePublish("like", errors.New("closed"))
	assert.Equal(t, before+1, testutil.ToFloat64(m.RealtimePublishTotal.WithLabelValues("like", "error")))
}
