package ports

type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe() (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}

// Topics publiés pendant un run.
const (
	TopicDownloadStarted  = "download.started"
	TopicDownloadProgress = "download.progress"
	TopicDownloadDone     = "download.done"
	TopicDownloadFailed   = "download.failed"
	TopicWeekStarted      = "week.started"
	TopicWeekCompleted    = "week.completed"
	TopicWeekFailed       = "week.failed"
)
