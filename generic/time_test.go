package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/expense-engine/generic"
)

func TestParseDate(t *testing.T) {
	d, err := generic.ParseDate("2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", d.String())

	empty, err := generic.ParseDate("  ")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
	assert.Equal(t, "", empty.String())

	_, err = generic.ParseDate("09/03/2025")
	assert.Error(t, err)
}

func TestDateOf_TruncatesToDay(t *testing.T) {
	d := generic.DateOf(time.Date(2025, time.March, 9, 23, 59, 0, 0, time.UTC))

	assert.True(t, d.Equal(generic.NewDate(2025, time.March, 9)))
	assert.True(t, generic.DateOf(time.Time{}).IsZero())
}

func TestMonth(t *testing.T) {
	// GIVEN: December 2024
	// WHEN: Moving across the year boundary
	// THEN: Next is January 2025 and Previous brings it back

	dec, err := generic.ParseMonth("12-2024")
	require.NoError(t, err)

	jan := dec.Next()
	assert.Equal(t, "01-2025", jan.String())
	assert.Equal(t, dec, jan.Previous())
	assert.True(t, dec.Before(jan))
	assert.True(t, jan.After(dec))

	assert.Equal(t, "2024-12-01", dec.Start().String())
	assert.Equal(t, "2024-12-31", dec.End().String())
	assert.True(t, dec.Contains(generic.NewDate(2024, time.December, 31)))
	assert.False(t, dec.Contains(generic.NewDate(2025, time.January, 1)))
	assert.False(t, dec.Contains(generic.Date{}))
}

func TestMonth_FebruaryEnd(t *testing.T) {
	feb := generic.Month{Year: 2024, Month: time.February}

	assert.Equal(t, "2024-02-29", feb.End().String())
}

func TestParseMonth_Invalid(t *testing.T) {
	for _, raw := range []string{"2025-03", "13-2025", "", "3/2025"} {
		_, err := generic.ParseMonth(raw)
		assert.Error(t, err, raw)
	}
}
