package model

import "time"

// RunStatus is the lifecycle state of a command run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one invocation of an analysis command.
type Run struct {
	ID        string            `json:"id"`
	Command   string            `json:"command"`
	Status    RunStatus         `json:"status"`
	Params    map[string]string `json:"params,omitempty"`
	Result    *RunResult        `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Duration is the time between creation and the last update.
func (r Run) Duration() time.Duration {
	return r.UpdatedAt.Sub(r.CreatedAt)
}

// RunResult is what a finished run produced.
type RunResult struct {
	Rows    int      `json:"rows"`
	Outputs []string `json:"outputs,omitempty"`
	Error   string   `json:"error,omitempty"`
}
