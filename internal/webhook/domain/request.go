package domain

import "net/netip"

// Request carries what the pipeline needs from an inbound webhook call.
type Request struct {
	Source    string
	SourceIP  netip.Addr
	Secret    string //nolint:gosec // presented by the caller, compared then discarded
	Signature string
	Payload   []byte
	RequestID string
}

// Stage names a step of the authentication pipeline.
type Stage string

const (
	StageIPFilter  Stage = "ip_filter"
	StageSecret    Stage = "shared_secret"
	StageSignature Stage = "signature"
)

// StageStatus is the result of one pipeline stage.
type StageStatus string

const (
	StagePassed  StageStatus = "passed"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
	// StageNotReached marks stages after the one that failed.
	StageNotReached StageStatus = "not_reached"
)

// StageResult records how a stage went.
type StageResult struct {
	Stage  Stage
	Status StageStatus
}

// Outcome is the pipeline verdict. Stages lists every stage in execution order,
// including ones that were skipped or never reached.
type Outcome struct {
	Authenticated bool
	FailedStage   Stage
	Stages        []StageResult
}

// StageMap returns stage statuses keyed by name, for audit metadata.
func (o *Outcome) StageMap() map[string]any {
	stages := make(map[string]any, len(o.Stages))
	for _, s := range o.Stages {
		stages[string(s.Stage)] = string(s.Status)
	}
	return stages
}
