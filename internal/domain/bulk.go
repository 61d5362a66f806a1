package domain

// BulkStatus tracks a bulk send run. Transitions are one-way: idle to
// sending to done, with no cancellation once sending starts.
type BulkStatus string

const (
	BulkIdle    BulkStatus = "idle"
	BulkSending BulkStatus = "sending"
	BulkDone    BulkStatus = "done"
)

func (s BulkStatus) String() string { return string(s) }

func (s BulkStatus) IsValid() bool {
	switch s {
	case BulkIdle, BulkSending, BulkDone:
		return true
	}
	return false
}

// BulkProgress is the externally visible state of one bulk send run.
// Sent and Failed sum to Total once Status reaches done. Delivered counts
// provider acceptances, which can exceed Sent when persistence fails
// after a successful handoff.
type BulkProgress struct {
	OperationID string     `json:"operationId"`
	Sent        int        `json:"sent"`
	Failed      int        `json:"failed"`
	Delivered   int        `json:"delivered"`
	Total       int        `json:"total"`
	Status      BulkStatus `json:"status"`
}
