package bulk

// Status is the outcome of one uploaded row.
type Status string

const (
	StatusInserted       Status = "inserted"
	StatusUpdated        Status = "updated"
	StatusSkippedInvalid Status = "skipped_invalid"
	StatusFailed         Status = "failed"
)

const (
	// ReasonNoMatch marks an update whose id matched nothing. The row still
	// counts as updated.
	ReasonNoMatch = "no contact matched id (0 rows affected)"
	ReasonTimeout = "aborted by timeout"
)

// Outcome is the result of one row. ID is the inserted or targeted contact.
type Outcome struct {
	Index  int    `json:"index"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	ID     string `json:"id,omitempty"`
}

// BatchResult summarizes an upload. Rows keep input order.
type BatchResult struct {
	Total          int       `json:"total"`
	Inserted       int       `json:"inserted"`
	Updated        int       `json:"updated"`
	SkippedInvalid int       `json:"skippedInvalid"`
	Failed         int       `json:"failed"`
	Rows           []Outcome `json:"rows"`
}

// Aggregate counts outcomes by status.
func Aggregate(outcomes []Outcome) BatchResult {
	res := BatchResult{Total: len(outcomes), Rows: make([]Outcome, len(outcomes))}
	copy(res.Rows, outcomes)
	for _, o := range outcomes {
		switch o.Status {
		case StatusInserted:
			res.Inserted++
		case StatusUpdated:
			res.Updated++
		case StatusSkippedInvalid:
			res.SkippedInvalid++
		case StatusFailed:
			res.Failed++
		}
	}
	return res
}
