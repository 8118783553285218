package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDamper_NextAndReset(t *testing.T) {
	d := &Damper{}

	assert.Equal(t, int64(1), d.Next())
	assert.Equal(t, int64(2), d.Next())
	assert.Equal(t, int64(2), d.Attempts())

	d.Reset()
	assert.Equal(t, int64(0), d.Attempts())
	assert.Equal(t, int64(1), d.Next())
}

func TestShouldLog(t *testing.T) {
	tests := []struct {
		attempt int64
		want    bool
	}{
		{1, true},
		{5, true},
		{10, true},
		{11, false},
		{20, true},
		{95, false},
		{100, true},
		{101, false},
		{150, false},
		{200, true},
		{1000, true},
		{1001, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ShouldLog(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Factor: 2.0}

	assert.Equal(t, time.Second, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 4*time.Second, b.Delay(3))
	assert.Equal(t, 8*time.Second, b.Delay(4))

	// Capped at MaxDelay from here on.
	assert.Equal(t, 10*time.Second, b.Delay(5))
	assert.Equal(t, 10*time.Second, b.Delay(50))
}

func TestBackoff_Delay_NonPositiveFailures(t *testing.T) {
	b := DefaultBackoff()

	assert.Equal(t, b.BaseDelay, b.Delay(0))
	assert.Equal(t, b.BaseDelay, b.Delay(-3))
}

func TestDefaultBackoff(t *testing.T) {
	b := DefaultBackoff()

	assert.Equal(t, 30*time.Second, b.BaseDelay)
	assert.Equal(t, 30*time.Minute, b.MaxDelay)
	assert.Equal(t, 2.0, b.Factor)
}
