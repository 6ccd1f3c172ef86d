package workflow

// ProgressState is the lifecycle of one generation run.
type ProgressState string

const (
	StateRunning  ProgressState = "running"
	StateComplete ProgressState = "complete"
	StateError    ProgressState = "error"
)

// Generation step indexes.
const (
	StepAnalyzing = iota
	StepExtracting
	StepGenerating
	StepTraceability
	StepReporting
)

// StepMessages are the human labels for each step.
var StepMessages = [...]string{
	StepAnalyzing:    "Analyzing Requirements",
	StepExtracting:   "Extracting Requirements",
	StepGenerating:   "Generating Test Cases",
	StepTraceability: "Building Traceability",
	StepReporting:    "Preparing Reports",
}

// Progress is one snapshot of a generation run. Step and Progress never
// decrease across a run.
type Progress struct {
	Step     int           `json:"step"`
	Message  string        `json:"message"`
	Progress int           `json:"progress"`
	State    ProgressState `json:"state"`
}

// Terminal reports whether no further progress follows.
func (p Progress) Terminal() bool {
	return p.State == StateComplete || p.State == StateError
}
