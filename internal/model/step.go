package model

// StepSummary aggregates the counters of one pipeline run.
type StepSummary struct {
	// ReadCount is the number of records successfully read from the source file.
	ReadCount int
	// WriteCount is the number of fact rows committed to the warehouse.
	WriteCount int
	// SkipCount is the number of records dropped under the skip policy.
	SkipCount int
	// FilterCount is the number of records the transformer discarded
	// (transformation failures that were logged and filtered).
	FilterCount int
}

// ExitStatus derives the run outcome from the counters: a run that read
// records but wrote none finishes with a warning status.
func (s StepSummary) ExitStatus() ExitStatus {
	if s.WriteCount == 0 && s.ReadCount > 0 {
		return ExitStatusCompletedWithWarnings
	}
	return ExitStatusCompleted
}
