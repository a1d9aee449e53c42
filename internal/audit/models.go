package audit

import (
	"time"

	"fieldreg/pkg/requestcontext"
)

// Action names a persisted change or session transition.
type Action string

const (
	ActionLogin               Action = "ambassador_login"
	ActionLogout              Action = "ambassador_logout"
	ActionAmbassadorCreated   Action = "ambassador_created"
	ActionAmbassadorUpdated   Action = "ambassador_updated"
	ActionReplicaCreated      Action = "replica_created"
	ActionReplicaUpdated      Action = "replica_updated"
	ActionRegistrationCreated Action = "registration_created"
)

// Event is emitted after a successful write against the persistence
// service. Keep it transport-agnostic so sinks can fan out.
type Event struct {
	ID           string                    `json:"id"`
	Timestamp    time.Time                 `json:"timestamp"`
	AmbassadorID int64                     `json:"ambassador_id"`
	Action       Action                    `json:"action"`
	Subject      string                    `json:"subject,omitempty"`
	Fields       []string                  `json:"fields,omitempty"`
	RequestID    string                    `json:"request_id,omitempty"`
	Client       requestcontext.ClientInfo `json:"client"`
}
