// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"context"
	"errors"
	"fmt"
)

// State is a generation lifecycle stage.
type State string

const (
	StateIdle           State = "idle"
	StateAdmitted       State = "admitted"
	StateModelStreaming State = "model-streaming"
	StateToolInvoked    State = "tool-invoked"
	StateToolStreaming  State = "tool-streaming"
	StateToolFinalizing State = "tool-finalizing"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
	StateAborted        State = "aborted"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAborted
}

// ThemeStatus is the status carried by a theme-styles-status event.
type ThemeStatus string

const (
	StatusProcessing ThemeStatus = "processing"
	StatusStreaming  ThemeStatus = "streaming"
	StatusReady      ThemeStatus = "ready"
)

// ErrAborted is returned when the caller cancelled the request.
var ErrAborted = fmt.Errorf("generation aborted: %w", context.Canceled)

// ErrTransport wraps a failure to deliver an event to the client.
var ErrTransport = errors.New("generation transport")

// ErrImage wraps a failure to load an image the user attached.
var ErrImage = errors.New("generation: attached image unusable")

// ErrNoMessages is returned when normalization leaves nothing to send.
var ErrNoMessages = errors.New("generation: no messages to send")
