// Package transport defines the capability set between the matching engine
// and whatever delivery mechanism carries messages to users. The engine is
// written against these interfaces only; the long-polling and webhook
// Telegram adapters consume it identically.
package transport

import (
	"context"

	"match-service/internal/model"
)

// Controls selects which inline controls accompany an outbound text.
type Controls int

const (
	// ControlsNone sends plain text.
	ControlsNone Controls = iota
	// ControlsAttribute offers the attribute declaration buttons.
	ControlsAttribute
	// ControlsSession offers the next/stop buttons.
	ControlsSession
)

// ActionSink performs outbound delivery toward a user.
type ActionSink interface {
	SendText(ctx context.Context, userID int64, text string, controls Controls) error
	ForwardMedia(ctx context.Context, userID int64, media model.MediaRef, caption string) error
}

// ActionSource feeds inbound user actions into the engine until ctx is
// cancelled.
type ActionSource interface {
	Run(ctx context.Context) error
}
