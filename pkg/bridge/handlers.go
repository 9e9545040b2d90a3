package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReadyToRunMessage is the API callback sent before each task runs.
const ReadyToRunMessage = "Task.Debug.ReadyToRun"

type apiCallback struct {
	Message string `json:"msg"`
	Details string `json:"details_json"`
}

type customActionRun struct {
	SyncContext string          `json:"sync_context"`
	TaskName    string          `json:"task_name"`
	Param       string          `json:"custom_action_param"`
	Box         json.RawMessage `json:"cur_box"`
	RecDetail   string          `json:"cur_rec_detail"`
}

// APIHandler forwards every API callback to output and passes "ready to
// run" notifications through gate.
func APIHandler(gate *Gate, output func(string)) Handler {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var cb apiCallback
		if err := json.Unmarshal(payload, &cb); err != nil {
			return nil, fmt.Errorf("decode api callback: %w", err)
		}
		output(cb.Message + " " + cb.Details)
		if cb.Message != ReadyToRunMessage {
			return nil, nil
		}
		var detail TaskDetail
		if err := json.Unmarshal([]byte(cb.Details), &detail); err != nil {
			return nil, fmt.Errorf("decode task detail: %w", err)
		}
		return nil, gate.ReadyToRun(ctx, detail)
	}
}

// CustomActionRunHandler reports a custom action invocation and answers
// success.
func CustomActionRunHandler(output func(string)) Handler {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req customActionRun
		if err := json.Unmarshal(payload, &req); err != nil {
			return map[string]any{"return": 1}, fmt.Errorf("decode custom action run: %w", err)
		}
		output(fmt.Sprintf("%s %s %s %s %s", req.SyncContext, req.TaskName, req.Param, string(req.Box), req.RecDetail))
		return map[string]any{"return": 1}, nil
	}
}

// CustomActionStopHandler reports a custom action stop request.
func CustomActionStopHandler(output func(string)) Handler {
	return func(context.Context, json.RawMessage) (any, error) {
		output("action stop")
		return nil, nil
	}
}
