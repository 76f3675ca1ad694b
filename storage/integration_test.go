package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"

	"healthcare-analytics/models"
)

// These tests talk to real databases and only run when the matching
// HEALTH_TEST_* variable is set, e.g. against `docker compose up -d`.

func TestPostgresSinkRoundTrip(t *testing.T) {
	dsn := os.Getenv("HEALTH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HEALTH_TEST_POSTGRES_DSN not set")
	}
	sink, err := NewPostgresSink(dsn, "it-run")
	require.NoError(t, err)
	defer sink.Close()
	ctx := context.Background()

	rows := []any{
		models.TopDiseaseRow{Rank: 1, DiagnosisCode: "D1", DiagnosisDescription: "Diabetes", Count: 2},
		models.TopDiseaseRow{Rank: 2, DiagnosisCode: "D2", DiagnosisDescription: "Asthma", Count: 1},
	}
	require.NoError(t, sink.Store(ctx, DatasetTopDiseases, rows))
	require.NoError(t, sink.Store(ctx, DatasetTopDiseases, rows[:1]))

	var n int
	require.NoError(t, sink.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM datasets WHERE dataset = $1`, DatasetTopDiseases).Scan(&n))
	assert.Equal(t, 1, n, "a store replaces the previous rows")

	var code string
	require.NoError(t, sink.db.QueryRowContext(ctx,
		`SELECT document->>'diagnosis_code' FROM datasets WHERE dataset = $1 AND position = 0`,
		DatasetTopDiseases).Scan(&code))
	assert.Equal(t, "D1", code)
}

func TestMongoSinkRoundTrip(t *testing.T) {
	url := os.Getenv("HEALTH_TEST_MONGO_URL")
	if url == "" {
		t.Skip("HEALTH_TEST_MONGO_URL not set")
	}
	sink, err := NewMongoSink(url, "healthcare_test", "_data", 5*time.Second)
	require.NoError(t, err)
	defer sink.Close()

	rows := []any{
		models.WeeklyTrendRow{DiagnosisCode: "D1", DiagnosisDescription: "Diabetes", DayOfWeek: "Tuesday", DayNumber: 2, Count: 2},
	}
	require.NoError(t, sink.Store(context.Background(), DatasetWeeklyTrend, rows))

	var got []bson.M
	c := sink.session.DB("healthcare_test").C(sink.Collection(DatasetWeeklyTrend))
	require.NoError(t, c.Find(nil).All(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Tuesday", got[0]["day_of_week"])
	assert.Equal(t, "disease_trend_over_the_week_data", sink.Collection(DatasetWeeklyTrend))
}
