package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("test@nhs.net"))
	assert.False(t, IsEmail("not-an-email"))
	assert.False(t, IsEmail(""))
}

func TestNormalisePhone(t *testing.T) {
	tests := []struct {
		in    string
		out   string
		valid bool
	}{
		{"07123456789", "07123456789", true},
		{"0113 496 0000", "01134960000", true},
		{"123", "123", false},
		{"0113 ABC 0000", "0113ABC0000", false},
		{"011349600001", "011349600001", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, valid := NormalisePhone(tt.in)
			assert.Equal(t, tt.out, out)
			assert.Equal(t, tt.valid, valid)
		})
	}
}

func TestValidateStruct(t *testing.T) {
	type sample struct {
		Table string `validate:"required"`
		Batch int    `validate:"min=1,max=100"`
	}

	assert.NoError(t, ValidateStruct(sample{Table: "state", Batch: 10}))
	assert.EqualError(t, ValidateStruct(sample{Batch: 0}), "table is required; batch must be at least 1")
}

func TestFixedClock(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, FixedClock(ts).Now())
	assert.Equal(t, "2025-01-01T00:00:00Z", FormatRFC3339Nano(ts))
}
