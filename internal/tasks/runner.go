package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"farah_app_echo/internal/models"
)

// RetryDelay is multiplied by the attempt number to get the next due time
// of a failed task
const RetryDelay = 5 * time.Minute

// Runner executes due scheduled tasks and records their history
type Runner struct {
	registry *Registry
	deps     *Deps
	now      func() time.Time
}

func NewRunner(registry *Registry, deps *Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{registry: registry, deps: deps, now: time.Now}
}

// ProcessDue runs every active task whose due time has passed and returns
// how many were run
func (r *Runner) ProcessDue(ctx context.Context) int {
	r.deps.Logger.Debug("Checking for pending tasks...")

	var pendingTasks []models.ScheduledTask
	if err := r.deps.DB.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due asc").
		Find(&pendingTasks).Error; err != nil {
		r.deps.Logger.Error("Error fetching pending tasks", zap.Error(err))
		return 0
	}

	if len(pendingTasks) == 0 {
		return 0
	}
	r.deps.Logger.Info("Found pending tasks", zap.Int("count", len(pendingTasks)))

	processed := 0
	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			break
		}
		r.execute(ctx, task)
		processed++
	}
	return processed
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) {
	logger := r.deps.Logger.With(zap.String("task", task.TaskName), zap.Uint("task_id", task.ID))
	startTime := r.now()
	attempt := task.Attempts + 1

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		logger.Error("Task handler not found, marking as failure")
		r.deps.DB.WithContext(ctx).Model(&task).Updates(map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &startTime,
		})
		r.recordHistory(ctx, task, startTime, 0, "handler_not_found", attempt, map[string]interface{}{"error": "Handler not found"})
		return
	}

	result, err := handler(ctx, r.deps, task, attempt)
	runtimeMs := int(r.now().Sub(startTime).Milliseconds())

	status := "success"
	if err != nil {
		status = "failure"
		result = map[string]interface{}{"error": err.Error()}
		logger.Warn("Task failed", zap.Int("attempt", attempt), zap.Error(err))
	} else {
		logger.Info("Task completed", zap.Int("attempt", attempt))
	}
	r.recordHistory(ctx, task, startTime, runtimeMs, status, attempt, result)

	updates := map[string]interface{}{"last_run": &startTime}
	if err != nil {
		updates["attempts"] = attempt
		if attempt < task.MaxAttempt {
			updates["due"] = startTime.Add(RetryDelay * time.Duration(attempt))
		} else {
			updates["status"] = models.ScheduledTaskStatusFailure
		}
	} else {
		updates["attempts"] = 0
		switch task.TaskType {
		case models.ScheduledTaskTypeRecurring:
			nextDue := task.NextDue(startTime)
			// a rule without future occurrences ends the task
			if nextDue.After(startTime) {
				updates["due"] = nextDue
			} else {
				updates["status"] = models.ScheduledTaskStatusDone
			}
		default:
			updates["status"] = models.ScheduledTaskStatusDone
		}
	}

	if err := r.deps.DB.WithContext(ctx).Model(&task).Updates(updates).Error; err != nil {
		logger.Error("Failed to update task", zap.Error(err))
	}
}

func (r *Runner) recordHistory(ctx context.Context, task models.ScheduledTask, runAt time.Time, runtimeMs int, status string, attempt int, result map[string]interface{}) {
	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           runAt,
		RuntimeMs:       runtimeMs,
		Status:          status,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if err := r.deps.DB.WithContext(ctx).Create(&history).Error; err != nil {
		r.deps.Logger.Error("Failed to record task history", zap.Error(err))
	}
}
