package tasks

import (
	"context"

	"go.uber.org/zap"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/services"
)

// LogInfoTaskDef writes its message to the log; used to check the worker
type LogInfoTaskDef struct{}

func (t *LogInfoTaskDef) TaskID() string {
	return services.TaskLogInfo
}

func (t *LogInfoTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask, attempt int) (map[string]interface{}, error) {
	message, ok := task.Arguments["message"].(string)
	if !ok {
		message = "No message provided"
	}
	deps.Logger.Info("log_info task", zap.String("message", message), zap.Int("attempt", attempt))

	return map[string]interface{}{
		"status":            "success",
		"message":           message,
		"max_attempts_info": task.MaxAttempt,
	}, nil
}

// LogInfoTask is the singleton instance of LogInfoTaskDef
var LogInfoTask = &LogInfoTaskDef{}
