package locale

type LocalizationFileInfo struct {
	DefaultCulture   string                       `json:"defaultCulture"`
	LocalizedContent map[string]map[string]string `json:"localizedContent"`
}

const (
	KeyTaskQueued      = "task.queued"
	KeyTaskProgress    = "task.progress"
	KeyTaskCompleted   = "task.completed"
	KeyTaskFailed      = "task.failed"
	KeyTaskInterrupted = "task.interrupted"
)
