package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// DefaultBaseURL is where MaaHttp listens unless told otherwise.
const DefaultBaseURL = "http://127.0.0.1:13126"

// DefaultCallTimeout bounds every call except the wait functions.
const DefaultCallTimeout = 60 * time.Second

// waitCalls block until the posted action completes, which includes any
// time the debugger holds the pipeline paused. They are bounded only by
// the caller's context.
var waitCalls = map[string]bool{
	"MaaWaitTask":       true,
	"MaaControllerWait": true,
	"MaaResourceWait":   true,
}

// Client talks to a MaaHttp server. API functions are POSTed to
// /api/<Function> and callback queues live under /callback/<Kind>/<op>.
// Every reply is an envelope holding either "data" or "error".
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	// CallTimeout bounds each non-wait call. Zero means no bound.
	CallTimeout time.Duration
}

// NewClient creates a client for the MaaHttp server at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  &http.Client{},
		Logger:      slog.New(slog.DiscardHandler),
		CallTimeout: DefaultCallTimeout,
	}
}

var _ Engine = (*Client)(nil)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

type returnValue[T any] struct {
	Return T `json:"return"`
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if in == nil {
		in = struct{}{}
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", path, err)
	}
	if c.CallTimeout > 0 && !waitCalls[strings.TrimPrefix(path, "/api/")] {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.CallTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode, truncate(raw, 300))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: parse response: %w", path, err)
	}
	if env.Error != "" {
		return zerr.With(zerr.Wrap(ErrOperationFailed, env.Error), "call", path)
	}
	c.Logger.Debug("engine call", "path", path, "response", truncate(env.Data, 200))
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: parse data: %w", path, err)
	}
	return nil
}

func (c *Client) api(ctx context.Context, fn string, in, out any) error {
	return c.post(ctx, "/api/"+fn, in, out)
}

func callAPI[T any](ctx context.Context, c *Client, fn string, in any) (T, error) {
	var out returnValue[T]
	err := c.api(ctx, fn, in, &out)
	return out.Return, err
}

func handle[T ~string](ctx context.Context, c *Client, fn string, in any) (T, error) {
	h, err := callAPI[string](ctx, c, fn, in)
	if err != nil {
		return "", err
	}
	if h == "" {
		return "", zerr.With(zerr.Wrap(ErrOperationFailed, "empty handle"), "call", fn)
	}
	return T(h), nil
}

func action(ctx context.Context, c *Client, fn string, in any) (ActionID, error) {
	id, err := callAPI[int64](ctx, c, fn, in)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, zerr.With(zerr.Wrap(ErrOperationFailed, "invalid action id"), "call", fn)
	}
	return ActionID(id), nil
}

// check calls a function whose non-zero return means success.
func check(ctx context.Context, c *Client, fn string, in any) error {
	ok, err := callAPI[int](ctx, c, fn, in)
	if err != nil {
		return err
	}
	if ok == 0 {
		return zerr.With(zerr.Wrap(ErrOperationFailed, "call returned false"), "call", fn)
	}
	return nil
}

func (c *Client) Version(ctx context.Context) (string, error) {
	return callAPI[string](ctx, c, "MaaVersion", nil)
}

func (c *Client) SetGlobalOptionString(ctx context.Context, opt GlobalOption, value string) error {
	return check(ctx, c, "MaaSetGlobalOptionString", map[string]any{"key": opt, "value": value})
}

func (c *Client) SetGlobalOptionBool(ctx context.Context, opt GlobalOption, value bool) error {
	return check(ctx, c, "MaaSetGlobalOptionBoolean", map[string]any{"key": opt, "value": value})
}

// FindDevices runs a device scan and collects the description of every
// device found.
func (c *Client) FindDevices(ctx context.Context) ([]DeviceInfo, error) {
	if err := check(ctx, c, "MaaToolkitPostFindDevice", nil); err != nil {
		return nil, err
	}
	count, err := callAPI[int](ctx, c, "MaaToolkitWaitForFindDeviceToComplete", nil)
	if err != nil {
		return nil, err
	}
	devices := make([]DeviceInfo, 0, count)
	for i := 0; i < count; i++ {
		dev, err := c.device(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func (c *Client) device(ctx context.Context, index int) (DeviceInfo, error) {
	in := map[string]any{"index": index}
	var (
		dev DeviceInfo
		err error
	)
	if dev.Name, err = callAPI[string](ctx, c, "MaaToolkitGetDeviceName", in); err != nil {
		return dev, err
	}
	if dev.AdbPath, err = callAPI[string](ctx, c, "MaaToolkitGetDeviceAdbPath", in); err != nil {
		return dev, err
	}
	if dev.Address, err = callAPI[string](ctx, c, "MaaToolkitGetDeviceAdbSerial", in); err != nil {
		return dev, err
	}
	if dev.Type, err = callAPI[AdbType](ctx, c, "MaaToolkitGetDeviceAdbControllerType", in); err != nil {
		return dev, err
	}
	if dev.Config, err = callAPI[string](ctx, c, "MaaToolkitGetDeviceAdbConfig", in); err != nil {
		return dev, err
	}
	return dev, nil
}

// ─── Callback queues ──────────────────────────────────────────────────────

func (c *Client) callback(ctx context.Context, kind ChannelKind, op string, in, out any) error {
	return c.post(ctx, "/callback/"+string(kind)+"/"+op, in, out)
}

func (c *Client) AddChannel(ctx context.Context, kind ChannelKind) (ChannelID, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.callback(ctx, kind, "add", nil, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", zerr.With(zerr.Wrap(ErrOperationFailed, "empty channel id"), "channel", string(kind))
	}
	return ChannelID(out.ID), nil
}

func (c *Client) DeleteChannel(ctx context.Context, kind ChannelKind, id ChannelID) error {
	return c.callback(ctx, kind, "del", map[string]any{"id": id}, nil)
}

func (c *Client) Pull(ctx context.Context, kind ChannelKind, id ChannelID) ([]string, error) {
	var out struct {
		IDs []string `json:"ids"`
	}
	if err := c.callback(ctx, kind, "pull", map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

func (c *Client) Request(ctx context.Context, kind ChannelKind, id ChannelID, cid string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.callback(ctx, kind, "request", map[string]any{"id": id, "cid": cid}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Respond(ctx context.Context, kind ChannelKind, id ChannelID, cid string, reply any) error {
	in := map[string]any{"id": id, "cid": cid}
	if fields, ok := reply.(map[string]any); ok {
		for k, v := range fields {
			in[k] = v
		}
	}
	return c.callback(ctx, kind, "response", in, nil)
}

// ─── Controller ───────────────────────────────────────────────────────────

func (c *Client) CreateAdbController(ctx context.Context, dev DeviceInfo, agentPath string, callback ChannelID) (ControllerID, error) {
	return handle[ControllerID](ctx, c, "MaaAdbControllerCreateV2", map[string]any{
		"adb_path":   dev.AdbPath,
		"address":    dev.Address,
		"type":       dev.Type,
		"config":     dev.Config,
		"agent_path": agentPath,
		"callback":   callback,
	})
}

func (c *Client) SetControllerOptionInt(ctx context.Context, ctrl ControllerID, opt ControllerOption, value int) error {
	return check(ctx, c, "MaaControllerSetOptionInteger", map[string]any{"ctrl": ctrl, "key": opt, "value": value})
}

func (c *Client) SetControllerOptionString(ctx context.Context, ctrl ControllerID, opt ControllerOption, value string) error {
	return check(ctx, c, "MaaControllerSetOptionString", map[string]any{"ctrl": ctrl, "key": opt, "value": value})
}

func (c *Client) PostConnect(ctx context.Context, ctrl ControllerID) (ActionID, error) {
	return action(ctx, c, "MaaControllerPostConnection", map[string]any{"ctrl": ctrl})
}

func (c *Client) WaitController(ctx context.Context, ctrl ControllerID, id ActionID) (Status, error) {
	return callAPI[Status](ctx, c, "MaaControllerWait", map[string]any{"ctrl": ctrl, "id": id})
}

func (c *Client) DestroyController(ctx context.Context, ctrl ControllerID) error {
	return c.api(ctx, "MaaControllerDestroy", map[string]any{"ctrl": ctrl}, nil)
}

// ─── Resource ─────────────────────────────────────────────────────────────

func (c *Client) CreateResource(ctx context.Context, callback ChannelID) (ResourceID, error) {
	return handle[ResourceID](ctx, c, "MaaResourceCreate", map[string]any{"callback": callback})
}

func (c *Client) PostResourcePath(ctx context.Context, res ResourceID, path string) (ActionID, error) {
	return action(ctx, c, "MaaResourcePostPath", map[string]any{"res": res, "path": path})
}

func (c *Client) WaitResource(ctx context.Context, res ResourceID, id ActionID) (Status, error) {
	return callAPI[Status](ctx, c, "MaaResourceWait", map[string]any{"res": res, "id": id})
}

func (c *Client) DestroyResource(ctx context.Context, res ResourceID) error {
	return c.api(ctx, "MaaResourceDestroy", map[string]any{"res": res}, nil)
}

// ─── Instance ─────────────────────────────────────────────────────────────

func (c *Client) CreateInstance(ctx context.Context, callback ChannelID) (InstanceID, error) {
	return handle[InstanceID](ctx, c, "MaaCreate", map[string]any{"callback": callback})
}

func (c *Client) BindController(ctx context.Context, inst InstanceID, ctrl ControllerID) error {
	return check(ctx, c, "MaaBindController", map[string]any{"inst": inst, "ctrl": ctrl})
}

func (c *Client) BindResource(ctx context.Context, inst InstanceID, res ResourceID) error {
	return check(ctx, c, "MaaBindResource", map[string]any{"inst": inst, "res": res})
}

func (c *Client) RegisterCustomAction(ctx context.Context, inst InstanceID, name string, run, stop ChannelID) error {
	return check(ctx, c, "MaaRegisterCustomAction", map[string]any{
		"inst":   inst,
		"name":   name,
		"action": map[string]any{"run": run, "stop": stop},
	})
}

func (c *Client) Initialized(ctx context.Context, inst InstanceID) (bool, error) {
	ok, err := callAPI[int](ctx, c, "MaaInited", map[string]any{"inst": inst})
	return ok != 0, err
}

func (c *Client) PostTask(ctx context.Context, inst InstanceID, entry string, param json.RawMessage) (ActionID, error) {
	if len(param) == 0 {
		param = json.RawMessage("{}")
	}
	return action(ctx, c, "MaaPostTask", map[string]any{"inst": inst, "entry": entry, "param": string(param)})
}

func (c *Client) WaitTask(ctx context.Context, inst InstanceID, id ActionID) (Status, error) {
	return callAPI[Status](ctx, c, "MaaWaitTask", map[string]any{"inst": inst, "id": id})
}

func (c *Client) PostStop(ctx context.Context, inst InstanceID) error {
	return check(ctx, c, "MaaPostStop", map[string]any{"inst": inst})
}

func (c *Client) DestroyInstance(ctx context.Context, inst InstanceID) error {
	return c.api(ctx, "MaaDestroy", map[string]any{"inst": inst}, nil)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
