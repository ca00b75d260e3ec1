package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery(t *testing.T) {
	s := Every(5 * time.Minute)
	now := time.Now()
	next := s.Next(now)

	assert.Equal(t, now.Add(5*time.Minute), next)
}

func TestEvery_MultipleNext(t *testing.T) {
	s := Every(time.Hour)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	next1 := s.Next(start)
	next2 := s.Next(next1)

	assert.Equal(t, time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), next1)
	assert.Equal(t, time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC), next2)
}

func TestStartingAt_HoldsFirstFiring(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	first := start.Add(30 * time.Second)
	s := StartingAt(first, Every(5*time.Minute))

	assert.Equal(t, first, s.Next(start))
	assert.Equal(t, first.Add(5*time.Minute), s.Next(first))
}

func TestParseCron(t *testing.T) {
	s, err := ParseCron("*/5 * * * *")
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC), s.Next(from))
}

func TestParseCron_Descriptor(t *testing.T) {
	s, err := ParseCron("@hourly")
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), s.Next(from))
}

func TestParseCron_Invalid(t *testing.T) {
	_, err := ParseCron("not a cron")
	assert.Error(t, err)
}
