package shared

import "time"

// Task types handled by cmd/worker.
const (
	TypeRebuildBookIndex = "book:rebuild_index"
	TypeEnsureBookIndex  = "book:ensure_index"
)

// Asynq queues and their worker priorities.
const (
	QueueCritical    = "critical"
	QueueDefault     = "default"
	QueueMaintenance = "maintenance"
)

// QueuePriorities is the weighted queue map for asynq.Config.
var QueuePriorities = map[string]int{
	QueueCritical:    6,
	QueueDefault:     3,
	QueueMaintenance: 1,
}

// IndexTaskPayload is the payload of both index tasks.
type IndexTaskPayload struct {
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Roles carried in JWT claims.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)
