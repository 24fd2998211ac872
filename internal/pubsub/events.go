// Package pubsub fans events out to subscribers. The logger uses it to mirror
// entries to the CLI and the repository uses it to announce rule-set changes.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// LogEntryEvent carries one formatted log line.
	LogEntryEvent EventType = "log.entry"
	// RuleSetChangedEvent is published when a rule-set file is written.
	RuleSetChangedEvent EventType = "ruleset.changed"
	// RuleSetRemovedEvent is published when a rule-set file disappears.
	RuleSetRemovedEvent EventType = "ruleset.removed"
	// RuleSetsReloadedEvent follows a full re-index of rule-set sources.
	RuleSetsReloadedEvent EventType = "rulesets.reloaded"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber hands out event channels that close with ctx.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
	SubscribeTypes(ctx context.Context, types ...EventType) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
