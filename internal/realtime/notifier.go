package realtime

import (
	"context"

	"github.com/google/uuid"
)

type ToastVariant string

const (
	ToastInfo    ToastVariant = "info"
	ToastSuccess ToastVariant = "success"
	ToastError   ToastVariant = "error"
)

// Toast is an ephemeral user-visible alert. DurationMS of zero means the
// client default.
type Toast struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Variant     ToastVariant `json:"variant,omitempty"`
	DurationMS  int          `json:"duration,omitempty"`
}

// Notifier delivers toasts to connected participants. Fire-and-forget; no
// delivery guarantees.
type Notifier interface {
	ShowUser(ctx context.Context, userID uuid.UUID, toast Toast)
	// ShowAllExcept shows the toast to every connected participant except
	// exceptID. uuid.Nil excludes nobody.
	ShowAllExcept(ctx context.Context, exceptID uuid.UUID, toast Toast)
}

// NopNotifier drops all toasts.
type NopNotifier struct{}

func (NopNotifier) ShowUser(context.Context, uuid.UUID, Toast)      {}
func (NopNotifier) ShowAllExcept(context.Context, uuid.UUID, Toast) {}
