package model

import "time"

// ChangeRecord is one row returned by a change-feed query: an entity that
// was modified at or after the requested timestamp. The catchup replayer
// wraps each record in a catchup envelope.
type ChangeRecord struct {
	EntityID   string                 `json:"entityID"`
	Data       map[string]interface{} `json:"data"`
	ModifiedAt time.Time              `json:"modifiedAt"`
}
