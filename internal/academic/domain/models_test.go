package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionMonthOf(t *testing.T) {
	session := Session{StartYear: 2025, StartMonth: int(time.April)}

	year, month := session.MonthOf(1)
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.April, month)

	year, month = session.MonthOf(9)
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.December, month)

	year, month = session.MonthOf(10)
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.January, month)

	year, month = session.MonthOf(12)
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.March, month)
}
