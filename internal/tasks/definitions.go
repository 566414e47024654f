package tasks

import "farah_app_echo/internal/services"

// DefineTasks registers all available tasks on r
func DefineTasks(r *Registry) {
	r.Register(services.TaskLogInfo, LogInfoTask.HandleExecution)
	r.Register(services.TaskNotifyOwner, NotifyOwnerTask.HandleExecution)
	r.Register(services.TaskReconcileRefund, ReconcileRefundTask.HandleExecution)
	r.Register(services.TaskRefundAudit, RefundAuditTask.HandleExecution)
}
