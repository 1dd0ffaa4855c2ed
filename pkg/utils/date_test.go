package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate(" 2020-01-05 ")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-05", FormatDate(d))

	_, err = ParseDate("05/01/2020")
	assert.Error(t, err)
}

func TestTruncateDay(t *testing.T) {
	in := time.Date(2024, 3, 9, 17, 45, 12, 99, time.FixedZone("X", 3600))
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), TruncateDay(in))
}
