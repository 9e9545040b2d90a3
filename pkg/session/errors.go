package session

import "go.trai.ch/zerr"

var (
	// ErrRemoteUnavailable is returned when the engine does not answer the
	// version query. No handle has been acquired at that point.
	ErrRemoteUnavailable = zerr.New("engine unavailable")
	// ErrDeviceNotFound is returned when no usable device is found.
	ErrDeviceNotFound = zerr.New("device not found")
	// ErrInitializationFailed is returned when the bound instance does not
	// report itself initialized.
	ErrInitializationFailed = zerr.New("instance initialization failed")
	// ErrLaunchAborted is returned when a terminate request arrives during
	// launch.
	ErrLaunchAborted = zerr.New("launch aborted")
	// ErrNotIdle is returned by Launch on a session that already launched.
	ErrNotIdle = zerr.New("session already launched")
)
