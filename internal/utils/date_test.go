package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "valid date", value: "2025-03-10"},
		{name: "rejects time component", value: "2025-03-10T00:00:00Z", wantErr: true},
		{name: "rejects slash format", value: "10/03/2025", wantErr: true},
		{name: "rejects short year", value: "25-03-10", wantErr: true},
		{name: "rejects empty", value: "", wantErr: true},
		{name: "rejects impossible day", value: "2025-02-30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseServiceDate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, FormatServiceDate(parsed))
		})
	}
}

func TestIsPastDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.True(t, IsPastDate("2025-03-09", now))
	assert.False(t, IsPastDate("2025-03-10", now), "today is not past")
	assert.False(t, IsPastDate("2025-03-11", now))
	assert.False(t, IsPastDate("garbage", now))
}
