package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionRunStarted    = "run.started"
	ActionPageProcessed = "run.page_processed"
	ActionRunCompleted  = "run.completed"
	ActionRunRolledBack = "run.rolled_back"
	ActionRunFailed     = "run.failed"
	ActionCronFired     = "cron.fired"
)

// Audit event categories group related actions.
const (
	CategoryRun  = "dropout.run"
	CategoryCron = "dropout.cron"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceRun      = "dropout_run"
	ResourceSchedule = "schedule"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionRunStarted,
		ActionPageProcessed,
		ActionRunCompleted,
		ActionRunRolledBack,
		ActionRunFailed,
		ActionCronFired,
	}
}
