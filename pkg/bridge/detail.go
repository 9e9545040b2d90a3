package bridge

import "encoding/json"

// TaskDetail is the engine's description of a task about to run.
type TaskDetail struct {
	ID          int             `json:"id"`
	Entry       string          `json:"entry"`
	UUID        string          `json:"uuid"`
	Hash        string          `json:"hash"`
	Name        string          `json:"name"`
	LatestHit   string          `json:"latest_hit"`
	Recognition json.RawMessage `json:"recognition,omitempty"`
	RunTimes    int             `json:"run_times"`
	Status      any             `json:"status"`
}

// Env exposes the detail to breakpoint conditions.
func (d TaskDetail) Env() map[string]any {
	var recognition any
	if len(d.Recognition) > 0 {
		_ = json.Unmarshal(d.Recognition, &recognition)
	}
	return map[string]any{
		"id":          d.ID,
		"entry":       d.Entry,
		"uuid":        d.UUID,
		"hash":        d.Hash,
		"name":        d.Name,
		"latest_hit":  d.LatestHit,
		"recognition": recognition,
		"run_times":   d.RunTimes,
		"status":      d.Status,
	}
}
