package webhook

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/sdklog"
)

// EventHandlerFunc processes one validated webhook delivery.
type EventHandlerFunc func(ctx context.Context, d Delivery) error

// registration pairs an event-type discriminant with its handler, in the
// order Register was called. Every matching registration runs in that order;
// catch-all registrations run only when no specific registration matches.
type registration struct {
	eventType string
	handle    EventHandlerFunc
}

// Handler validates an inbound delivery and dispatches it, in registration
// order, to every registered handler whose event type matches the delivery's
// event-type header.
type Handler struct {
	Validator       *Validator
	EventTypeHeader string

	// Logger receives a Debug line per dispatched delivery and a Warn when
	// no handler matches. Nil is a safe no-op.
	Logger sdklog.Logger

	registrations []registration
}

// NewHandler builds a Handler that reads its event discriminant from header
// (e.g. "X-Event-Type").
func NewHandler(validator *Validator, eventTypeHeader string) *Handler {
	return &Handler{Validator: validator, EventTypeHeader: eventTypeHeader}
}

// Register binds eventType to fn. "" matches any event type that no specific
// registration claims, acting as a catch-all.
func (h *Handler) Register(eventType string, fn EventHandlerFunc) {
	h.registrations = append(h.registrations, registration{eventType: eventType, handle: fn})
}

// Handle validates d, then runs every handler registered for its event type
// (or, when none is, every catch-all) in registration order, stopping at and
// returning the first handler error.
func (h *Handler) Handle(ctx context.Context, d Delivery) error {
	// deliveryID correlates this delivery across validation, dispatch, and
	// whatever the handler itself logs, even though this package keeps no
	// dedupe ledger of its own.
	deliveryID := uuid.NewString()

	if h.Validator != nil {
		if err := h.Validator.Validate(d); err != nil {
			return err
		}
	}

	eventType := strings.TrimSpace(d.Headers.Get(h.EventTypeHeader))

	dispatched := false
	for _, r := range h.registrations {
		if r.eventType == "" || !strings.EqualFold(r.eventType, eventType) {
			continue
		}
		dispatched = true
		h.logDebug("dispatching webhook delivery", "delivery_id", deliveryID, "event_type", eventType)
		if err := r.handle(ctx, d); err != nil {
			return err
		}
	}
	if !dispatched {
		for _, r := range h.registrations {
			if r.eventType != "" {
				continue
			}
			dispatched = true
			h.logDebug("dispatching webhook delivery to catch-all handler", "delivery_id", deliveryID, "event_type", eventType)
			if err := r.handle(ctx, d); err != nil {
				return err
			}
		}
	}
	if dispatched {
		return nil
	}

	if h.Logger != nil {
		h.Logger.Warn("no webhook handler registered for event type", "delivery_id", deliveryID, "event_type", eventType)
	}
	return sdkerr.New(sdkerr.KindNotFound, "no webhook handler registered for event type").
		WithMetadata(map[string]any{"event_type": eventType, "delivery_id": deliveryID})
}

func (h *Handler) logDebug(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Debug(msg, args...)
	}
}
