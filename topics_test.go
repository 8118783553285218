package vesselsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicFor(t *testing.T) {
	tests := []struct {
		entity string
		want   string
	}{
		{EntityWorkOrders, "vessel/sync/work_orders"},
		{EntityAlerts, "vessel/sync/alerts"},
		{EntityEquipment, "vessel/sync/equipment"},
		{EntityCrew, "vessel/sync/crew"},
		{EntityMaintenanceSchedules, "vessel/sync/maintenance"},
		{"custom_entity", "vessel/sync/custom_entity"},
	}

	for _, tt := range tests {
		t.Run(tt.entity, func(t *testing.T) {
			assert.Equal(t, tt.want, TopicFor(tt.entity))
		})
	}
}

func TestCatchupTopicFor(t *testing.T) {
	assert.Equal(t, "vessel/sync/work_orders/catchup", CatchupTopicFor(EntityWorkOrders))
	assert.Equal(t, "vessel/sync/maintenance/catchup", CatchupTopicFor(EntityMaintenanceSchedules))
}

func TestPolicyFor(t *testing.T) {
	// Safety alerts ride exactly-once; everything else at-least-once retained.
	alerts := PolicyFor(EntityAlerts)
	assert.Equal(t, byte(2), alerts.QoS)
	assert.True(t, alerts.Retain)

	workOrders := PolicyFor(EntityWorkOrders)
	assert.Equal(t, byte(1), workOrders.QoS)
	assert.True(t, workOrders.Retain)

	unknown := PolicyFor("custom_entity")
	assert.Equal(t, byte(1), unknown.QoS)
	assert.True(t, unknown.Retain)
}

func TestSetDefaultQoS(t *testing.T) {
	t.Cleanup(func() { _ = SetDefaultQoS(1) })

	require.NoError(t, SetDefaultQoS(0))
	assert.Equal(t, byte(0), DefaultQoS())
	assert.Equal(t, byte(0), PolicyFor(EntityWorkOrders).QoS)

	// Per-class overrides are unaffected.
	assert.Equal(t, byte(2), PolicyFor(EntityAlerts).QoS)

	assert.Error(t, SetDefaultQoS(3))
	assert.Equal(t, byte(0), DefaultQoS())
}

func TestCatchupPolicy(t *testing.T) {
	assert.Equal(t, byte(1), CatchupPolicy.QoS)
	assert.False(t, CatchupPolicy.Retain)
}

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		topic   string
		want    bool
	}{
		{"exact match", "a/b/c", "a/b/c", true},
		{"exact mismatch", "a/b/c", "a/b/d", false},
		{"plus matches one segment", "a/+/c", "a/b/c", true},
		{"plus does not span segments", "a/+/c", "a/b/c/d", false},
		{"plus needs the segment", "a/+/c", "a/c", false},
		{"hash matches remainder", "a/#", "a/b", true},
		{"hash matches deep remainder", "a/#", "a/b/c", true},
		{"hash matches parent itself", "a/#", "a", true},
		{"hash alone matches everything", "#", "vessel/sync/alerts", true},
		{"longer pattern no match", "a/b/c", "a/b", false},
		{"longer topic no match", "a/b", "a/b/c", false},
		{"plus at tail", "vessel/sync/+", "vessel/sync/crew", true},
		{"mixed wildcards", "vessel/+/alerts", "vessel/sync/alerts", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchTopic(tt.pattern, tt.topic))
		})
	}
}
