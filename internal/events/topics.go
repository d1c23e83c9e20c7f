package events

const (
	TopicSettingsChanged = "settings.changed"
	TopicRunStarted      = "run.started"
	TopicRunFinished     = "run.finished"
	TopicAlarmChanged    = "alarm.changed"
)
