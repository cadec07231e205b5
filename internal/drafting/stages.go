package drafting

// Stage identifies which drafting prompt is composed.
type Stage string

const (
	StageGenerate Stage = "generate"
	StageFix      Stage = "fix"
)
