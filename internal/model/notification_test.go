package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusSent.IsTerminal())
	assert.True(t, StatusDead.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusFailed.IsTerminal())
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("URGENT")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, p)

	_, err = ParsePriority("critical")
	assert.Error(t, err)
}

func TestPriority_JSON(t *testing.T) {
	body, err := json.Marshal(struct {
		P Priority `json:"p"`
	}{P: PriorityHigh})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"high"}`, string(body))

	var decoded struct {
		P Priority `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":"low"}`), &decoded))
	assert.Equal(t, PriorityLow, decoded.P)
}

func TestMaskRecipient(t *testing.T) {
	assert.Equal(t, "j***@clinic.org", MaskRecipient(ChannelEmail, "jane.doe@clinic.org"))
	assert.Equal(t, "***4567", MaskRecipient(ChannelSMS, "+15551234567"))
	assert.Equal(t, "****", MaskRecipient(ChannelPush, "abc"))
	assert.Equal(t, "", MaskRecipient(ChannelPush, ""))
}

func TestNotification_SummaryHidesContent(t *testing.T) {
	n := Notification{
		ID:        uuid.New(),
		Channel:   ChannelSMS,
		Recipient: "+15551234567",
		Content:   "Your appointment is tomorrow",
		Status:    StatusPending,
	}

	s := n.Summary()
	body, err := json.Marshal(s)
	require.NoError(t, err)

	assert.NotContains(t, string(body), "appointment")
	assert.NotContains(t, string(body), "+15551234567")
	assert.Equal(t, n.ID, s.ID)
}
