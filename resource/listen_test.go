package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerRule_Never(t *testing.T) {
	rule := Never()
	assert.False(t, rule.Matches("camera", ""))
	assert.False(t, rule.Excluded("camera", ""))
	assert.Empty(t, rule.Channels())

	var zero TriggerRule
	assert.False(t, zero.Matches("", ""))
}

func TestTriggerRule_AnyPayload(t *testing.T) {
	rule := AnyPayload("beacon")
	assert.True(t, rule.Matches("beacon", ""))
	assert.True(t, rule.Matches("beacon", "B1"))
	assert.False(t, rule.Matches("camera", ""))
	assert.Equal(t, []string{"beacon"}, rule.Channels())
}

func TestTriggerRule_ExceptPayloads(t *testing.T) {
	rule := ExceptPayloads("dms", "msg_user", "expire_time")

	tests := []struct {
		channel  string
		payload  string
		matches  bool
		excluded bool
	}{
		{"dms", "msg_user", false, true},
		{"dms", "expire_time", false, true},
		{"dms", "", true, false},
		{"dms", "msg_current", true, false},
		{"dms", "V66E37", true, false},
		{"camera", "msg_user", false, false},
		{"camera", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.channel+"/"+tt.payload, func(t *testing.T) {
			assert.Equal(t, tt.matches, rule.Matches(tt.channel, tt.payload))
			assert.Equal(t, tt.excluded, rule.Excluded(tt.channel, tt.payload))
		})
	}
}

func TestTriggerRule_OnlyPayloads(t *testing.T) {
	rule := OnlyPayloads("parking_area", "time_stamp")

	assert.True(t, rule.Matches("parking_area", "time_stamp"))
	assert.False(t, rule.Matches("parking_area", "time_stamp_static"))
	assert.False(t, rule.Matches("parking_area", ""))
	assert.False(t, rule.Matches("dms", "time_stamp"))

	// Excluded equals Matches for everything but ExceptPayloads
	assert.True(t, rule.Excluded("parking_area", "time_stamp"))
	assert.False(t, rule.Excluded("parking_area", "other"))
}

func TestTriggerRule_AnyOnEitherChannel(t *testing.T) {
	rule := AnyOnEitherChannel("font", "glyph")
	assert.True(t, rule.Matches("font", ""))
	assert.True(t, rule.Matches("glyph", "F07_65"))
	assert.False(t, rule.Matches("graphic", ""))
	assert.Equal(t, []string{"font", "glyph"}, rule.Channels())
}
