package job

// Status is the stage a report run has reached.
type Status int

const (
	Pending Status = iota
	Gathering
	Rendering
	Uploading
	Finished
	Rejected
	Failed
)

func (s Status) String() string {
	if s < 0 || s > 6 {
		return "Unknown"
	}
	return [...]string{
		"Pending",
		"Gathering",
		"Rendering",
		"Uploading",
		"Finished",
		"Rejected",
		"Failed",
	}[s]
}

// Result describes a completed report run.
// A Rejected run uploaded an error report instead of the vulnerability report.
type Result struct {
	RunID   string
	Status  Status
	Archive string
	Errors  []string
}
