package audit

import "time"

// Action names the committed operation an event records.
type Action string

const (
	ActionRegisterNumbersCommitted Action = "register_numbers.committed"
	ActionStatementImported        Action = "statement.imported"
	ActionEnvelopeBatchSubmitted   Action = "envelope_batch.submitted"
	ActionManualContribution       Action = "contribution.manual_recorded"
	ActionContributionDeleted      Action = "contribution.deleted"
)

// Event is emitted after a unit of work commits. Keep it transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Action     Action            `json:"action"`
	Subject    string            `json:"subject"`
	ActorID    string            `json:"actor_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
