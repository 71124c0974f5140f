package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
)

func TestDecode_ValidLine(t *testing.T) {
	obs, err := domain.Decode("19850101\t289\t145\t30")
	require.NoError(t, err)

	assert.Equal(t, time.Date(1985, time.January, 1, 0, 0, 0, 0, time.UTC), obs.Date)
	require.NotNil(t, obs.RawMaxTemp)
	assert.Equal(t, 289, *obs.RawMaxTemp)
	require.NotNil(t, obs.MaxTempC)
	assert.InDelta(t, 28.9, *obs.MaxTempC, 1e-9)
	require.NotNil(t, obs.MinTempC)
	assert.InDelta(t, 14.5, *obs.MinTempC, 1e-9)
	require.NotNil(t, obs.PrecipMM)
	assert.InDelta(t, 3.0, *obs.PrecipMM, 1e-9)
	require.NotNil(t, obs.PrecipCM)
	assert.InDelta(t, 0.3, *obs.PrecipCM, 1e-9)
}

func TestDecode_SentinelMapsToMissing(t *testing.T) {
	obs, err := domain.Decode("20200101\t-9999\t10\t5")
	require.NoError(t, err)

	assert.Nil(t, obs.RawMaxTemp)
	assert.Nil(t, obs.MaxTempC)
	require.NotNil(t, obs.MinTempC)
	assert.InDelta(t, 1.0, *obs.MinTempC, 1e-9)
	require.NotNil(t, obs.PrecipMM)
	assert.InDelta(t, 0.5, *obs.PrecipMM, 1e-9)
}

func TestDecode_NegativeTemperatures(t *testing.T) {
	obs, err := domain.Decode("19850115\t-22\t-167\t0")
	require.NoError(t, err)

	require.NotNil(t, obs.MaxTempC)
	assert.InDelta(t, -2.2, *obs.MaxTempC, 1e-9)
	require.NotNil(t, obs.MinTempC)
	assert.InDelta(t, -16.7, *obs.MinTempC, 1e-9)
	require.NotNil(t, obs.PrecipMM)
	assert.Zero(t, *obs.PrecipMM)
}

func TestDecode_SkipReasons(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{name: "too few fields", line: "19850101\t289\t145", want: domain.ErrFieldCount},
		{name: "too many fields", line: "19850101\t289\t145\t30\t1", want: domain.ErrFieldCount},
		{name: "empty line", line: "", want: domain.ErrFieldCount},
		{name: "bad date", line: "1985-01-01\t289\t145\t30", want: domain.ErrBadDate},
		{name: "impossible date", line: "19850230\t289\t145\t30", want: domain.ErrBadDate},
		{name: "non-numeric max temp", line: "19850101\tabc\t145\t30", want: domain.ErrBadNumber},
		{name: "non-numeric precip", line: "19850101\t289\t145\tx", want: domain.ErrBadNumber},
		{name: "float field", line: "19850101\t28.9\t145\t30", want: domain.ErrBadNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.Decode(tt.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// Re-encoding a clean value by multiplying by 10 and rounding must recover
// the original raw integer for every valid line.
func TestDecode_RoundTrip(t *testing.T) {
	lines := []string{
		"19850101\t289\t145\t30",
		"19850102\t-22\t-167\t0",
		"19850103\t0\t-1\t1",
		"19850104\t600\t-600\t10000",
		"19850105\t1\t-9999\t255",
	}

	for _, line := range lines {
		obs, err := domain.Decode(line)
		require.NoError(t, err, line)

		pairs := []struct {
			raw   *int
			clean *float64
		}{
			{obs.RawMaxTemp, obs.MaxTempC},
			{obs.RawMinTemp, obs.MinTempC},
			{obs.RawPrecip, obs.PrecipMM},
		}
		for _, p := range pairs {
			if p.raw == nil {
				assert.Nil(t, p.clean)
				continue
			}
			require.NotNil(t, p.clean)
			assert.Equal(t, *p.raw, int(math.Round(*p.clean*10)), line)
		}
	}
}
