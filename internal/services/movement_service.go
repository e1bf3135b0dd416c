package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cuentas/internal/amqp"
	"cuentas/internal/core"
	"cuentas/internal/source"
)

// ErrInvalidMovement wraps every validation failure of a write.
var ErrInvalidMovement = errors.New("invalid movement")

// SyncPublisher publishes movement change messages. The AMQP client
// implements it; tests inject fakes.
type SyncPublisher interface {
	PublishMovementSync(ctx context.Context, msg *amqp.MovementSyncMessage) error
}

// MovementService handles movement writes: local persistence first,
// then a best-effort sync message for the sheets mirror.
type MovementService struct {
	writer    source.MovementWriter
	publisher SyncPublisher
}

func NewMovementService(writer source.MovementWriter, publisher SyncPublisher) *MovementService {
	return &MovementService{
		writer:    writer,
		publisher: publisher,
	}
}

// CreateMovement validates, assigns an ID when missing, saves and
// publishes. A failed publish never fails the request: the movement is
// already stored and the worker's periodic pass will catch up.
func (s *MovementService) CreateMovement(ctx context.Context, bookID string, m core.Movement) (core.Movement, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := validateMovement(bookID, m); err != nil {
		return core.Movement{}, err
	}

	if err := s.writer.CreateMovement(ctx, bookID, m); err != nil {
		return core.Movement{}, fmt.Errorf("save movement: %w", err)
	}

	s.publish(ctx, m.ID, bookID, amqp.ActionCreate, 1)
	return m, nil
}

func (s *MovementService) UpdateMovement(ctx context.Context, bookID string, m core.Movement) error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMovement)
	}
	if err := validateMovement(bookID, m); err != nil {
		return err
	}

	if err := s.writer.UpdateMovement(ctx, bookID, m); err != nil {
		return fmt.Errorf("update movement: %w", err)
	}

	s.publish(ctx, m.ID, bookID, amqp.ActionUpdate, 0)
	return nil
}

func (s *MovementService) DeleteMovement(ctx context.Context, bookID, movementID string) error {
	if movementID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMovement)
	}

	if err := s.writer.DeleteMovement(ctx, bookID, movementID); err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}

	s.publish(ctx, movementID, bookID, amqp.ActionDelete, 0)
	return nil
}

func (s *MovementService) publish(ctx context.Context, movementID, bookID, action string, version int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Sync publisher not configured, skipping message",
			"movement_id", movementID, "action", action)
		return
	}
	msg := amqp.NewMovementSyncMessage(movementID, bookID, action, version)
	if err := s.publisher.PublishMovementSync(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"movement_id", movementID,
			"book_id", bookID,
			"action", action,
			"error", err)
	}
}

func validateMovement(bookID string, m core.Movement) error {
	var problems []string
	if bookID == "" {
		problems = append(problems, "missing book id")
	}
	if strings.TrimSpace(m.Date) == "" {
		problems = append(problems, "missing date")
	} else if m.Time().IsZero() {
		problems = append(problems, fmt.Sprintf("unparseable date %q", m.Date))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidMovement, strings.Join(problems, "; "))
	}
	return nil
}
