package progression

// MasteryResult is the outcome of a mastery evaluation. RecommendedGrade is
// only meaningful when Achieved is true and HasNextGrade reports whether the
// student's grade has a defined successor.
type MasteryResult struct {
	Achieved         bool
	HasNextGrade     bool
	RecommendedGrade int
}

// Detector evaluates whether a completed session demonstrates mastery of
// the student's current grade.
type Detector interface {
	Detect(grade int, outcome SessionOutcome) MasteryResult
}

// defaultDetector is the standard implementation of the Detector interface
type defaultDetector struct {
	params *Params
}

// NewDefaultDetector creates a mastery detector with default parameters
func NewDefaultDetector() Detector {
	return &defaultDetector{params: NewDefaultParams()}
}

// NewDetectorWithParams creates a mastery detector with custom parameters
func NewDetectorWithParams(params *Params) Detector {
	return &defaultDetector{params: params}
}

// Detect implements the Detector interface. Mastery requires an adaptive
// session that finished at high difficulty with high accuracy. Sessions
// with no questions never qualify.
func (d *defaultDetector) Detect(grade int, outcome SessionOutcome) MasteryResult {
	if !outcome.Adaptive || outcome.TotalCount <= 0 {
		return MasteryResult{}
	}
	if outcome.FinalDifficulty < d.params.MasteryDifficulty {
		return MasteryResult{}
	}
	if outcome.Accuracy() < d.params.MasteryAccuracy {
		return MasteryResult{}
	}

	next, ok := d.params.GradeProgression[grade]
	return MasteryResult{
		Achieved:         true,
		HasNextGrade:     ok,
		RecommendedGrade: next,
	}
}
