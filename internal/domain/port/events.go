package port

// Event уведомление для открытых окон просмотра
type Event struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	ImageID    string `json:"image_id"`
	Count      int    `json:"count"`
	FinalCount int    `json:"final_count"`
}

const (
	EventDetectionSaved     = "detection.saved"
	EventAnnotationsUpdated = "annotations.updated"
)

// EventPublisher рассылает события подписчикам
type EventPublisher interface {
	Publish(event Event)
}
