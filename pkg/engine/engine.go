// Package engine describes the remote task-execution engine the debugger
// drives, and provides an HTTP client for MaaHttp.
//
// Every engine operation is a remote call. Handles are opaque strings; an
// empty handle or a false result is reported as ErrOperationFailed.
package engine

//go:generate mockgen -source=engine.go -destination=mocks/mock_engine.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"

	"go.trai.ch/zerr"
)

// ErrOperationFailed is returned when the engine rejects an operation or
// hands back an empty handle.
var ErrOperationFailed = zerr.New("engine operation failed")

type (
	ControllerID string
	ResourceID   string
	InstanceID   string
	ChannelID    string
	// ActionID identifies an asynchronous operation posted to a handle.
	ActionID int64
)

// Status is the state of a posted action.
type Status int

const (
	StatusInvalid Status = 0
	StatusPending Status = 1000
	StatusRunning Status = 2000
	StatusSuccess Status = 3000
	StatusFailed  Status = 4000
)

// Done reports whether the action finished, successfully or not.
func (s Status) Done() bool { return s == StatusSuccess || s == StatusFailed }

func (s Status) String() string {
	switch s {
	case StatusInvalid:
		return "invalid"
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ChannelKind names one of the engine's callback queues.
type ChannelKind string

const (
	APICallback      ChannelKind = "MaaAPICallback"
	CustomActionRun  ChannelKind = "CustomActionRun"
	CustomActionStop ChannelKind = "CustomActionStop"
)

// GlobalOption keys accepted by SetGlobalOption.
type GlobalOption int

const (
	GlobalLogDir       GlobalOption = 1
	GlobalDebugMessage GlobalOption = 6
)

// ControllerOption keys accepted by the controller option setters.
type ControllerOption int

const (
	ScreenshotTargetLongSide  ControllerOption = 1
	ScreenshotTargetShortSide ControllerOption = 2
	DefaultAppPackageEntry    ControllerOption = 3
	DefaultAppPackage         ControllerOption = 4
)

// AdbType packs the touch, key and screencap methods of an ADB controller.
type AdbType int

const (
	TouchMask          AdbType = 0xff
	KeyMask            AdbType = 0xff00
	ScreencapEncode    AdbType = 4 << 16
	ScreencapMask      AdbType = 0xff0000
	ScreencapFastest   AdbType = 1 << 16
	ScreencapRawNetcat AdbType = 2 << 16
)

// WithScreencap replaces the screencap method of t.
func (t AdbType) WithScreencap(method AdbType) AdbType {
	return (t &^ ScreencapMask) | (method & ScreencapMask)
}

// DeviceInfo describes a device found by the engine's toolkit.
type DeviceInfo struct {
	Name    string  `json:"name"`
	AdbPath string  `json:"adb_path"`
	Address string  `json:"address"`
	Type    AdbType `json:"type"`
	Config  string  `json:"config"`
}

// Engine is the remote task-execution engine.
type Engine interface {
	Version(ctx context.Context) (string, error)
	SetGlobalOptionString(ctx context.Context, opt GlobalOption, value string) error
	SetGlobalOptionBool(ctx context.Context, opt GlobalOption, value bool) error
	FindDevices(ctx context.Context) ([]DeviceInfo, error)

	// AddChannel opens a callback queue of the given kind.
	AddChannel(ctx context.Context, kind ChannelKind) (ChannelID, error)
	DeleteChannel(ctx context.Context, kind ChannelKind, id ChannelID) error
	// Pull returns the ids of callbacks waiting on the queue.
	Pull(ctx context.Context, kind ChannelKind, id ChannelID) ([]string, error)
	// Request returns the payload of a pending callback.
	Request(ctx context.Context, kind ChannelKind, id ChannelID, cid string) (json.RawMessage, error)
	// Respond acknowledges a callback; the engine blocks the originating
	// operation until it arrives.
	Respond(ctx context.Context, kind ChannelKind, id ChannelID, cid string, reply any) error

	CreateAdbController(ctx context.Context, dev DeviceInfo, agentPath string, callback ChannelID) (ControllerID, error)
	SetControllerOptionInt(ctx context.Context, ctrl ControllerID, opt ControllerOption, value int) error
	SetControllerOptionString(ctx context.Context, ctrl ControllerID, opt ControllerOption, value string) error
	PostConnect(ctx context.Context, ctrl ControllerID) (ActionID, error)
	WaitController(ctx context.Context, ctrl ControllerID, id ActionID) (Status, error)
	DestroyController(ctx context.Context, ctrl ControllerID) error

	CreateResource(ctx context.Context, callback ChannelID) (ResourceID, error)
	PostResourcePath(ctx context.Context, res ResourceID, path string) (ActionID, error)
	WaitResource(ctx context.Context, res ResourceID, id ActionID) (Status, error)
	DestroyResource(ctx context.Context, res ResourceID) error

	CreateInstance(ctx context.Context, callback ChannelID) (InstanceID, error)
	BindController(ctx context.Context, inst InstanceID, ctrl ControllerID) error
	BindResource(ctx context.Context, inst InstanceID, res ResourceID) error
	RegisterCustomAction(ctx context.Context, inst InstanceID, name string, run, stop ChannelID) error
	Initialized(ctx context.Context, inst InstanceID) (bool, error)
	PostTask(ctx context.Context, inst InstanceID, entry string, param json.RawMessage) (ActionID, error)
	WaitTask(ctx context.Context, inst InstanceID, id ActionID) (Status, error)
	PostStop(ctx context.Context, inst InstanceID) error
	DestroyInstance(ctx context.Context, inst InstanceID) error
}
