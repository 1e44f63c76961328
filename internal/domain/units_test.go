package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemperatureConversions(t *testing.T) {
	assert.InDelta(t, 0.0, KelvinToCelsius(273.15), 1e-9)
	assert.InDelta(t, 32.0, CelsiusToFahrenheit(0), 1e-9)
	assert.InDelta(t, 212.0, CelsiusToFahrenheit(100), 1e-9)
	assert.InDelta(t, 100.0, FahrenheitToCelsius(212), 1e-9)
	assert.InDelta(t, 32.0, KelvinToFahrenheit(273.15), 1e-9)
	assert.InDelta(t, -40.0, KelvinToFahrenheit(233.15), 1e-9)
}

func TestSpeedAndLengthConversions(t *testing.T) {
	assert.InDelta(t, 22.369, MPSToMPH(10), 1e-3)
	assert.InDelta(t, 19.438, MPSToKnots(10), 1e-3)
	assert.InDelta(t, 11.508, KnotsToMPH(10), 1e-3)
	assert.InDelta(t, 62.137, KMHToMPH(100), 1e-3)
	assert.InDelta(t, 3280.84, MetersToFeet(1000), 1e-2)
	assert.InDelta(t, 1.0, MillimetersToInches(25.4), 1e-9)
	assert.InDelta(t, 1.0, KgM2ToInches(25.4), 1e-9)
	assert.InDelta(t, 1013.25, PascalsToHectopascals(101325), 1e-9)
}

func TestLookupConversion(t *testing.T) {
	t.Run("empty is identity", func(t *testing.T) {
		c, err := LookupConversion("")
		require.NoError(t, err)
		assert.Equal(t, 7.5, c.Fn(7.5))
		assert.Empty(t, c.Units)
	})

	t.Run("case insensitive", func(t *testing.T) {
		c, err := LookupConversion(" K_TO_F ")
		require.NoError(t, err)
		assert.Equal(t, "°F", c.Units)
		assert.InDelta(t, 32.0, c.Fn(273.15), 1e-9)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := LookupConversion("furlongs")
		require.ErrorIs(t, err, ErrUnknownConversion)
	})
}

func TestConvert(t *testing.T) {
	v, err := Convert("mm_to_in", 50.8)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-9)

	_, err = Convert("bogus", 1)
	require.ErrorIs(t, err, ErrUnknownConversion)
}

func TestFromWMOUnit(t *testing.T) {
	tests := []struct {
		uom   string
		in    float64
		want  float64
		label string
	}{
		{"wmoUnit:degC", 20, 68, "°F"},
		{"wmoUnit:degF", 68, 68, "°F"},
		{"wmoUnit:K", 273.15, 32, "°F"},
		{"wmoUnit:km_h-1", 16.09344, 10, "mph"},
		{"wmoUnit:m_s-1", 4.4704, 10, "mph"},
		{"wmoUnit:percent", 55, 55, "%"},
		{"wmoUnit:mm", 25.4, 1, "in"},
		{"wmoUnit:degree_(angle)", 270, 270, "degree_(angle)"},
		{"plain", 3, 3, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.uom, func(t *testing.T) {
			got, label := FromWMOUnit(tt.uom, tt.in)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.Equal(t, tt.label, label)
		})
	}
}
