package scrape

// State is a step of the per-job state machine:
//
//	Ready → Searching → AwaitingResults → Selecting → AwaitingDetail →
//	Extracting → {Succeeded, Failed} → Recovering → Ready
type State int32

const (
	Ready State = iota
	Searching
	AwaitingResults
	Selecting
	AwaitingDetail
	Extracting
	Succeeded
	Failed
	Recovering
)

var stateNames = [...]string{
	Ready:           "ready",
	Searching:       "searching",
	AwaitingResults: "awaiting_results",
	Selecting:       "selecting",
	AwaitingDetail:  "awaiting_detail",
	Extracting:      "extracting",
	Succeeded:       "succeeded",
	Failed:          "failed",
	Recovering:      "recovering",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
