package service

import (
	"math/rand"
	"testing"
	"time"

	"PriceWatch/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(ts string, price string) models.PriceSample {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return models.PriceSample{Time: t, Price: decimal.RequireFromString(price)}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregateHourExample(t *testing.T) {
	samples := []models.PriceSample{
		sample("2024-01-01T10:00:00Z", "10"),
		sample("2024-01-01T10:30:00Z", "12"),
		sample("2024-01-01T11:15:00Z", "8"),
	}

	candles, err := Aggregate(samples, models.TimeframeHour)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	first := candles[0]
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), first.Bucket)
	assert.True(t, first.Open.Equal(dec("10")))
	assert.True(t, first.High.Equal(dec("12")))
	assert.True(t, first.Low.Equal(dec("10")))
	assert.True(t, first.Close.Equal(dec("12")))

	second := candles[1]
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), second.Bucket)
	for _, v := range []decimal.Decimal{second.Open, second.High, second.Low, second.Close} {
		assert.True(t, v.Equal(dec("8")))
	}
}

func TestAggregateEmpty(t *testing.T) {
	candles, err := Aggregate(nil, models.TimeframeDay)
	require.NoError(t, err)
	assert.NotNil(t, candles)
	assert.Empty(t, candles)
}

func TestAggregateInvalidTimeframe(t *testing.T) {
	_, err := Aggregate(nil, models.Timeframe("minute"))
	assert.ErrorIs(t, err, models.ErrInvalidTimeframe)
}

func TestAggregateOutOfOrderOpenClose(t *testing.T) {
	samples := []models.PriceSample{
		sample("2024-03-05T18:00:00Z", "3"),
		sample("2024-03-05T01:00:00Z", "1"),
		sample("2024-03-05T12:00:00Z", "9"),
		sample("2024-03-05T06:00:00Z", "0.5"),
	}

	candles, err := Aggregate(samples, models.TimeframeDay)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	c := candles[0]
	assert.True(t, c.Open.Equal(dec("1")))
	assert.True(t, c.Close.Equal(dec("3")))
	assert.True(t, c.High.Equal(dec("9")))
	assert.True(t, c.Low.Equal(dec("0.5")))
	assert.Equal(t, time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC), c.FirstSeen())
	assert.Equal(t, time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC), c.LastSeen())
}

func TestAggregateTiesKeepFirstWriter(t *testing.T) {
	samples := []models.PriceSample{
		sample("2024-03-05T10:00:00Z", "4"),
		sample("2024-03-05T10:00:00Z", "7"),
	}

	candles, err := Aggregate(samples, models.TimeframeHour)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.True(t, candles[0].Open.Equal(dec("4")))
	assert.True(t, candles[0].Close.Equal(dec("4")))
	assert.True(t, candles[0].High.Equal(dec("7")))
}

func TestAggregateWeekStartsMonday(t *testing.T) {
	samples := []models.PriceSample{
		sample("2024-01-07T23:59:00Z", "1"), // Sunday
		sample("2024-01-08T00:00:00Z", "2"), // Monday 00:00 maps to itself
		sample("2024-01-10T12:00:00Z", "3"), // Wednesday
		sample("2024-02-29T08:00:00Z", "4"), // Thursday
	}

	candles, err := Aggregate(samples, models.TimeframeWeek)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), candles[0].Bucket)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), candles[1].Bucket)
	assert.Equal(t, time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC), candles[2].Bucket)
	for _, c := range candles {
		assert.Equal(t, time.Monday, c.Bucket.Weekday())
		assert.Zero(t, c.Bucket.Hour())
	}
	assert.True(t, candles[1].Open.Equal(dec("2")))
	assert.True(t, candles[1].Close.Equal(dec("3")))
}

func TestAggregateMonthAndNonUTCInput(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	samples := []models.PriceSample{
		// 2024-01-31 22:00 EST is 2024-02-01 03:00 UTC.
		{Time: time.Date(2024, 1, 31, 22, 0, 0, 0, est), Price: dec("5")},
		sample("2024-01-15T00:00:00Z", "6"),
	}

	candles, err := Aggregate(samples, models.TimeframeMonth)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), candles[0].Bucket)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), candles[1].Bucket)
}

func TestAggregateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	samples := make([]models.PriceSample, 0, 500)
	for i := 0; i < 500; i++ {
		samples = append(samples, models.PriceSample{
			// distinct timestamps: ties are first-writer-wins and therefore order dependent
			Time:  base.Add(time.Duration(i) * 19 * time.Hour).Add(time.Duration(rng.Intn(3600)) * time.Second),
			Price: decimal.New(int64(rng.Intn(100000)+1), -2),
		})
	}

	for _, tf := range models.Timeframes {
		t.Run(string(tf), func(t *testing.T) {
			want, err := Aggregate(samples, tf)
			require.NoError(t, err)
			require.NotEmpty(t, want)

			for i, c := range want {
				if i > 0 {
					assert.True(t, want[i-1].Bucket.Before(c.Bucket), "buckets sorted and unique")
				}
				assert.True(t, c.Low.LessThanOrEqual(decimal.Min(c.Open, c.Close)))
				assert.True(t, c.High.GreaterThanOrEqual(decimal.Max(c.Open, c.Close)))
				start, err := BucketStart(c.Bucket, tf)
				require.NoError(t, err)
				assert.Equal(t, start, c.Bucket, "bucket is canonical")
			}

			for round := 0; round < 5; round++ {
				shuffled := append([]models.PriceSample(nil), samples...)
				rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

				got, err := Aggregate(shuffled, tf)
				require.NoError(t, err)
				require.Len(t, got, len(want))
				for i := range want {
					assert.Equal(t, want[i].Bucket, got[i].Bucket)
					assert.Equal(t, want[i].Open.String(), got[i].Open.String())
					assert.Equal(t, want[i].High.String(), got[i].High.String())
					assert.Equal(t, want[i].Low.String(), got[i].Low.String())
					assert.Equal(t, want[i].Close.String(), got[i].Close.String())
				}
			}
		})
	}
}

func TestAggregateAll(t *testing.T) {
	all := AggregateAll([]models.PriceSample{sample("2024-01-01T10:00:00Z", "1")})
	require.Len(t, all, len(models.Timeframes))
	for _, tf := range models.Timeframes {
		assert.Len(t, all[tf], 1)
	}
}
