package vesselsync

import (
	"fmt"
	"strings"
)

// Entity class identifiers for the synced record types.
// The topic table below is fixed policy, not caller-configurable.
const (
	EntityWorkOrders           = "work_orders"
	EntityAlerts               = "alerts"
	EntityEquipment            = "equipment"
	EntityCrew                 = "crew"
	EntityMaintenanceSchedules = "maintenance_schedules"
)

const (
	topicPrefix = "vessel/sync/"

	// StatusTopic carries the retained online/offline presence message and
	// the broker-side last will.
	StatusTopic = "vessel/sync/system/status"

	catchupSuffix = "/catchup"
)

// PublishPolicy is the delivery guarantee applied to an entity class.
type PublishPolicy struct {
	QoS    byte
	Retain bool
}

// CatchupPolicy applies to every catchup replay regardless of entity class:
// at-least-once, never retained. Catchup messages are meant for the specific
// client that asked, not for future late joiners.
var CatchupPolicy = PublishPolicy{QoS: 1, Retain: false}

// entityTopics maps each entity class to its wire topic.
var entityTopics = map[string]string{
	EntityWorkOrders:           topicPrefix + "work_orders",
	EntityAlerts:               topicPrefix + "alerts",
	EntityEquipment:            topicPrefix + "equipment",
	EntityCrew:                 topicPrefix + "crew",
	EntityMaintenanceSchedules: topicPrefix + "maintenance",
}

// entityPolicies holds per-class overrides of the default delivery policy.
// Safety alerts get QoS 2, reflecting their criticality.
var entityPolicies = map[string]PublishPolicy{
	EntityAlerts: {QoS: 2, Retain: true},
}

// defaultPolicy applies to every entity class without an override.
var defaultPolicy = PublishPolicy{QoS: 1, Retain: true}

// TopicFor resolves the wire topic for an entity class.
// Unknown classes get a topic derived from their name so generic entities
// still sync under the shared prefix.
func TopicFor(entityClass string) string {
	if topic, ok := entityTopics[entityClass]; ok {
		return topic
	}
	return topicPrefix + entityClass
}

// CatchupTopicFor resolves the dedicated catchup topic for an entity class.
func CatchupTopicFor(entityClass string) string {
	return TopicFor(entityClass) + catchupSuffix
}

// PolicyFor resolves the delivery policy for an entity class.
func PolicyFor(entityClass string) PublishPolicy {
	if policy, ok := entityPolicies[entityClass]; ok {
		return policy
	}
	return defaultPolicy
}

// DefaultQoS returns the QoS level applied to entity classes without a
// policy override.
func DefaultQoS() byte {
	return defaultPolicy.QoS
}

// SetDefaultQoS overrides the QoS level applied to entity classes without a
// policy override. Valid levels are 0, 1, and 2. Call once during start-up,
// before services begin publishing; per-class overrides (safety alerts) are
// unaffected.
func SetDefaultQoS(qos byte) error {
	if qos > 2 {
		return NewError(ErrCodeConfiguration, fmt.Sprintf("invalid QoS level %d, must be 0-2", qos))
	}
	defaultPolicy.QoS = qos
	return nil
}

// MatchTopic evaluates an MQTT subscription pattern against a concrete topic.
// Segment-wise comparison: "+" matches exactly one segment, "#" matches the
// remainder of the topic at any depth, and without "#" the pattern and topic
// must have equal segment counts.
//
// Matching is evaluated locally so dispatch correctness does not depend on
// the broker's own wildcard forwarding semantics.
func MatchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patternSegs := strings.Split(pattern, "/")
	topicSegs := strings.Split(topic, "/")

	for i, seg := range patternSegs {
		if seg == "#" {
			return true
		}
		if i >= len(topicSegs) {
			return false
		}
		if seg == "+" {
			continue
		}
		if seg != topicSegs[i] {
			return false
		}
	}

	return len(patternSegs) == len(topicSegs)
}
