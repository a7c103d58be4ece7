package model

// DiffJob carries the paths of one target's two-stage diff pipeline.
//
// Stage one (raw difference) reads CurrentImage and LastImage and writes
// RawDiff. Stage two (negate) reads RawDiff and writes FinalDiff, which is
// the image the report links to.
type DiffJob struct {
	Target       Target
	Slug         string
	CurrentImage string
	LastImage    string
	RawDiff      string
	FinalDiff    string

	// CompletedStages lists the names of the stages that finished.
	CompletedStages []string
}
