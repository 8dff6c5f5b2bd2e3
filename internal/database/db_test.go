package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fplscraper/fplscraper/internal/stats"
	"github.com/fplscraper/fplscraper/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSeries(id string) stats.Series {
	return stats.Series{ID: id, Name: "Test Series", Unit: "kWh", Source: "fpl"}
}

func TestStatistics(t *testing.T) {
	t.Run("EmptySeries", func(t *testing.T) {
		db := testDB(t)
		_, _, ok, err := db.LastSum("fpl:111_hourly_usage")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("AppendAndLastSum", func(t *testing.T) {
		db := testDB(t)
		series := testSeries("fpl:111_hourly_usage")
		start := time.Date(2022, 3, 7, 1, 0, 0, 0, time.FixedZone("EST", -5*3600))

		err := db.Append(series, []models.StatisticPoint{
			{Start: start, Sum: 1.5, State: 1.5},
			{Start: start.Add(time.Hour), Sum: 2.6, State: 1.1},
		})
		require.NoError(t, err)

		sum, lastStart, ok, err := db.LastSum(series.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 2.6, sum)
		assert.True(t, start.Add(time.Hour).Equal(lastStart))
	})

	t.Run("DuplicateStartIgnored", func(t *testing.T) {
		db := testDB(t)
		series := testSeries("fpl:111_hourly_usage")
		start := time.Date(2022, 3, 7, 1, 0, 0, 0, time.UTC)

		require.NoError(t, db.Append(series, []models.StatisticPoint{
			{Start: start, Sum: 1.5, State: 1.5},
		}))
		require.NoError(t, db.Append(series, []models.StatisticPoint{
			{Start: start, Sum: 99, State: 99},
		}))

		sum, _, ok, err := db.LastSum(series.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1.5, sum, "the first write for a bucket wins")

		points, err := db.ListStatistics(series.ID, 0)
		require.NoError(t, err)
		assert.Len(t, points, 1)
	})

	t.Run("MixedOffsetsOrderChronologically", func(t *testing.T) {
		db := testDB(t)
		series := testSeries("fpl:111_hourly_usage")

		// Lexicographically "03-08 00:00+05:00" sorts after "03-07 23:00+00:00"
		// but is four hours earlier.
		earlier := time.Date(2022, 3, 8, 0, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
		later := time.Date(2022, 3, 7, 23, 0, 0, 0, time.UTC)

		require.NoError(t, db.Append(series, []models.StatisticPoint{
			{Start: later, Sum: 5, State: 1},
			{Start: earlier, Sum: 3, State: 1},
		}))

		sum, lastStart, ok, err := db.LastSum(series.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 5.0, sum)
		assert.True(t, later.Equal(lastStart))
	})

	t.Run("SeriesIsolation", func(t *testing.T) {
		db := testDB(t)
		start := time.Date(2022, 3, 7, 1, 0, 0, 0, time.UTC)

		require.NoError(t, db.Append(testSeries("fpl:111_hourly_usage"), []models.StatisticPoint{
			{Start: start, Sum: 1, State: 1},
		}))
		require.NoError(t, db.Append(testSeries("fpl:222_hourly_usage"), []models.StatisticPoint{
			{Start: start, Sum: 7, State: 7},
		}))

		sum, _, ok, err := db.LastSum("fpl:111_hourly_usage")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1.0, sum)

		series, err := db.ListSeries()
		require.NoError(t, err)
		assert.Len(t, series, 2)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		db := testDB(t)
		series := testSeries("fpl:111_hourly_usage")
		start := time.Date(2022, 3, 7, 1, 0, 0, 0, time.UTC)

		require.NoError(t, db.Append(series, []models.StatisticPoint{
			{Start: start, Sum: 1, State: 1},
			{Start: start.Add(time.Hour), Sum: 2, State: 1},
			{Start: start.Add(2 * time.Hour), Sum: 3, State: 1},
		}))

		points, err := db.ListStatistics(series.ID, 2)
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, 3.0, points[0].Sum)
		assert.Equal(t, 2.0, points[1].Sum)
	})
}

func TestSnapshots(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		db := testDB(t)
		rec, _, err := db.LatestSnapshot("111")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		db := testDB(t)
		billToDate := 42.5
		in := &models.AccountRecord{
			AccountNumber:   "111",
			Premise:         "000001234",
			CurrentBillDate: time.Date(2022, 2, 25, 0, 0, 0, 0, time.UTC),
			ServiceDays:     30,
			BillToDate:      &billToDate,
		}
		require.NoError(t, db.SaveSnapshot("111", in))

		out, takenAt, err := db.LatestSnapshot("111")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, "111", out.AccountNumber)
		assert.Equal(t, 30, out.ServiceDays)
		require.NotNil(t, out.BillToDate)
		assert.Equal(t, 42.5, *out.BillToDate)
		assert.WithinDuration(t, time.Now(), takenAt, time.Minute)
	})

	t.Run("ReplacesPrevious", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.SaveSnapshot("111", &models.AccountRecord{AccountNumber: "111", ServiceDays: 30}))
		require.NoError(t, db.SaveSnapshot("111", &models.AccountRecord{AccountNumber: "111", ServiceDays: 31}))

		out, _, err := db.LatestSnapshot("111")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, 31, out.ServiceDays)

		accounts, err := db.ListSnapshotAccounts()
		require.NoError(t, err)
		assert.Equal(t, []string{"111"}, accounts)
	})
}
