package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFlag_DecodesBothFirmwareEncodings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"backend integer one", `{"read": 1}`, true},
		{"backend integer zero", `{"read": 0}`, false},
		{"legacy boolean true", `{"read": true}`, true},
		{"legacy boolean false", `{"read": false}`, false},
		{"absent field", `{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record notificationRecord
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &record))
			assert.Equal(t, tt.want, bool(record.Read))
		})
	}
}

func TestReadFlag_MarshalsAsInteger(t *testing.T) {
	data, err := json.Marshal(notificationRecord{Read: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"read":1`)

	data, err = json.Marshal(notificationRecord{Read: false})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"read":0`)
}

func TestNotificationRecord_RoundTripsDomainFields(t *testing.T) {
	createdAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	record := notificationRecord{
		Type:           "expiring_soon",
		Title:          "Product expiring soon",
		Message:        "Milk expires in 2 day(s)",
		ProductBarcode: "123",
		CreatedAt:      createdAt.UnixMilli(),
		Read:           false,
	}

	n := toNotificationDomain("dev-1", "n-1", record)
	assert.Equal(t, "dev-1", n.DeviceID)
	assert.Equal(t, "n-1", n.ID)
	assert.True(t, n.CreatedAt.Equal(createdAt))

	back := fromNotificationDomain(n)
	assert.Equal(t, record, back)
}
