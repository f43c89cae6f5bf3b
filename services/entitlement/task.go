package entitlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var TaskModule = fx.Module("task.entitlement",
	fx.Provide(NewTask),
)

// Task adapts the lifecycle event handlers to asynq. Each handler decodes the
// event envelope and delegates to the synchronizer; handlers are safe to
// invoke more than once for the same logical event.
type Task struct {
	svc *Service
}

type TaskParams struct {
	fx.In
	Service *Service
}

func NewTask(p TaskParams) *Task {
	return &Task{svc: p.Service}
}

// RegisterTaskHandlers binds the lifecycle task types to their handlers.
func RegisterTaskHandlers(mux *asynq.ServeMux, t *Task) {
	mux.HandleFunc(TaskAPIKeyApproved, t.HandleAPIKeyApproved)
	mux.HandleFunc(TaskAPIKeyUpdated, t.HandleAPIKeyUpdated)
	mux.HandleFunc(TaskPartnerUpdated, t.HandlePartnerUpdated)
	mux.HandleFunc(TaskPolicyUpdated, t.HandlePolicyUpdated)
	mux.HandleFunc(TaskMispLicenseUpdated, t.HandleMispLicenseUpdated)
}

func (t *Task) decode(task *asynq.Task) (*EventModel, *zap.Logger, error) {
	var m EventModel
	if err := json.Unmarshal(task.Payload(), &m); err != nil {
		return nil, nil, fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", task.Type()),
		zap.String("event_id", m.Event.ID),
		zap.String("publisher", m.Publisher),
	)
	return &m, zapLog, nil
}

func (t *Task) HandleAPIKeyApproved(ctx context.Context, task *asynq.Task) error {
	m, zapLog, err := t.decode(task)
	if err != nil {
		return err
	}

	if err := t.svc.HandleAPIKeyApproved(ctx, m); err != nil {
		zapLog.Error("failed to sync approved api key", zap.Error(err))
		return err
	}

	zapLog.Info("api key approval synced")
	return nil
}

func (t *Task) HandleAPIKeyUpdated(ctx context.Context, task *asynq.Task) error {
	m, zapLog, err := t.decode(task)
	if err != nil {
		return err
	}

	if err := t.svc.HandleAPIKeyUpdated(ctx, m); err != nil {
		zapLog.Error("failed to sync api key update", zap.Error(err))
		return err
	}

	zapLog.Info("api key update synced")
	return nil
}

func (t *Task) HandlePartnerUpdated(ctx context.Context, task *asynq.Task) error {
	m, zapLog, err := t.decode(task)
	if err != nil {
		return err
	}

	if err := t.svc.HandlePartnerUpdated(ctx, m); err != nil {
		zapLog.Error("failed to sync partner update", zap.Error(err))
		return err
	}

	zapLog.Info("partner update synced")
	return nil
}

func (t *Task) HandlePolicyUpdated(ctx context.Context, task *asynq.Task) error {
	m, zapLog, err := t.decode(task)
	if err != nil {
		return err
	}

	if err := t.svc.HandlePolicyUpdated(ctx, m); err != nil {
		zapLog.Error("failed to sync policy update", zap.Error(err))
		return err
	}

	zapLog.Info("policy update synced")
	return nil
}

func (t *Task) HandleMispLicenseUpdated(ctx context.Context, task *asynq.Task) error {
	m, zapLog, err := t.decode(task)
	if err != nil {
		return err
	}

	if err := t.svc.HandleMispLicenseUpdated(ctx, m); err != nil {
		zapLog.Error("failed to sync misp license update", zap.Error(err))
		return err
	}

	zapLog.Info("misp license update synced")
	return nil
}
