package vo

// StageStatus classifies the outcome of one optional pipeline stage.
// Optional stages degrade instead of aborting the publish, so downstream
// catalog building inspects results rather than catching errors.
type StageStatus string

const (
	StageDone    StageStatus = "done"
	StageSkipped StageStatus = "skipped"
	StageFailed  StageStatus = "failed"
)

// StageResult records what a pipeline stage produced, if anything.
type StageResult struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Path   string      `json:"path,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// Done marks a stage as completed with the artifact it wrote.
func Done(stage, path string) StageResult {
	return StageResult{Stage: stage, Status: StageDone, Path: path}
}

// Skipped marks a stage as intentionally not run (feature off, no input).
func Skipped(stage, reason string) StageResult {
	return StageResult{Stage: stage, Status: StageSkipped, Reason: reason}
}

// Memoized marks a stage as skipped because its artifact already exists.
func Memoized(stage, path string) StageResult {
	return StageResult{Stage: stage, Status: StageSkipped, Path: path, Reason: "already generated"}
}

// Failed marks a stage as attempted and failed; the pipeline continues.
func Failed(stage string, err error) StageResult {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return StageResult{Stage: stage, Status: StageFailed, Reason: reason}
}

// Ok reports whether the stage produced or reused an artifact.
func (r StageResult) Ok() bool {
	return r.Status == StageDone || r.Status == StageSkipped
}
