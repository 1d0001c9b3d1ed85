package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

func TestOverlapsSymmetricAndReflexive(t *testing.T) {
	ranges := []DateRange{
		{Start: "2024-01-01", End: "2024-01-10"},
		{Start: "2024-01-10", End: "2024-01-15"},
		{Start: "2024-01-11", End: "2024-01-20"},
		{Start: "2024-02-01", End: "2024-02-01"},
	}
	for _, a := range ranges {
		assert.True(t, a.Overlaps(a), "%v should overlap itself", a)
		for _, b := range ranges {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%v vs %v", a, b)
		}
	}
}

func TestOverlapsInclusiveBoundary(t *testing.T) {
	assert.True(t, Overlaps("2024-01-01", "2024-01-10", "2024-01-10", "2024-01-20"))
	assert.False(t, Overlaps("2024-01-01", "2024-01-10", "2024-01-11", "2024-01-20"))
}

func TestDateRangeValidate(t *testing.T) {
	require.NoError(t, NewDateRange("2024-01-01", "2024-01-01").Validate())

	cases := []DateRange{
		{},
		{Start: "2024-01-01"},
		{Start: "2024-13-01", End: "2024-12-01"},
		{Start: "2024-01-02", End: "2024-01-01"},
	}
	for _, rng := range cases {
		err := rng.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	}
}

func TestContains(t *testing.T) {
	rng := NewDateRange("2024-03-01", "2024-03-15")
	assert.True(t, rng.Contains("2024-03-01"))
	assert.True(t, rng.Contains("2024-03-15"))
	assert.False(t, rng.Contains("2024-03-16"))
}

func TestWeekOf(t *testing.T) {
	cases := map[string]DateRange{
		"2024-03-11": {Start: "2024-03-11", End: "2024-03-17"},
		"2024-03-13": {Start: "2024-03-11", End: "2024-03-17"},
		"2024-03-17": {Start: "2024-03-11", End: "2024-03-17"},
		"2024-03-18": {Start: "2024-03-18", End: "2024-03-24"},
		"2024-01-01": {Start: "2024-01-01", End: "2024-01-07"},
	}
	for date, want := range cases {
		got, err := WeekOf(date)
		require.NoError(t, err)
		assert.Equal(t, want, got, date)
	}

	_, err := WeekOf("not-a-date")
	assert.Error(t, err)
}
