package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateRenderings(t *testing.T) {
	day := time.Date(2026, time.August, 28, 9, 15, 0, 0, time.UTC)

	assert.Equal(t, "28-Aug-2026", UploadDate(day))
	assert.Equal(t, "28082026", FileDate(day))
	assert.Equal(t, "28282026", FileDateDayForMonth(day))
}

func TestFileDatePadsSingleDigits(t *testing.T) {
	day := time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "03022026", FileDate(day))
	assert.Equal(t, "03032026", FileDateDayForMonth(day))
}
