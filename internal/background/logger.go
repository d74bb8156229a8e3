package background

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"multascan/internal/logging"
)

// TaskCompletionLogger emits one structured JSON line per task lifecycle
// event so task outcomes can be tailed and shipped independently of the
// application log.
type TaskCompletionLogger struct {
	appLogger logging.Logger
}

// NewTaskCompletionLogger creates a new task completion logger
func NewTaskCompletionLogger() *TaskCompletionLogger {
	return &TaskCompletionLogger{
		appLogger: logging.GetGlobalLogger().WithField("component", "task_logger"),
	}
}

// TaskCompletionLog is the structured completion record written to stdout
type TaskCompletionLog struct {
	Timestamp      string                 `json:"timestamp"`
	Level          string                 `json:"level"`
	Message        string                 `json:"message"`
	ProcessID      string                 `json:"processId"`
	Status         string                 `json:"status"`
	ProcessingTime string                 `json:"processingTime,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// LogTaskCompletion writes the structured completion record for a task
func (l *TaskCompletionLogger) LogTaskCompletion(result *TaskResult) error {
	entry := &TaskCompletionLog{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     "info",
		Message:   "Task completed",
		ProcessID: result.ProcessID,
		Status:    string(result.Status),
		Error:     result.Error,
		Metadata:  result.Metadata,
	}
	if result.ProcessingTime != nil {
		entry.ProcessingTime = result.ProcessingTime.String()
	}
	if result.Status == TaskStatusFailure {
		entry.Level = "error"
		entry.Message = "Task failed"
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal task completion log: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(payload))
	return err
}

// LogTaskAccepted logs task acceptance
func (l *TaskCompletionLogger) LogTaskAccepted(processID string) {
	l.appLogger.Info("Task accepted", map[string]interface{}{
		"process_id": processID,
		"status":     string(TaskStatusAccepted),
	})
}

// LogTaskStart logs the start of task processing
func (l *TaskCompletionLogger) LogTaskStart(processID string) {
	l.appLogger.Info("Task processing started", map[string]interface{}{
		"process_id": processID,
		"status":     string(TaskStatusProcessing),
	})
}

// LogTaskSuccess logs successful task completion
func (l *TaskCompletionLogger) LogTaskSuccess(processID string, processingTime time.Duration) {
	l.appLogger.Info("Task completed successfully", map[string]interface{}{
		"process_id":      processID,
		"status":          string(TaskStatusSuccess),
		"processing_time": processingTime.String(),
	})
}

// LogTaskError logs a task failure
func (l *TaskCompletionLogger) LogTaskError(processID string, err error) {
	l.appLogger.Error("Task failed", map[string]interface{}{
		"process_id": processID,
		"status":     string(TaskStatusFailure),
		"error":      err.Error(),
	})
}
