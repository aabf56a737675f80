package entity

import "time"

// ImageRecord состояние одного загруженного изображения.
type ImageRecord struct {
	ID             string      `json:"image_id"`
	SessionID      string      `json:"session_id"`
	Filename       string      `json:"filename"`
	AutoColonies   []Colony    `json:"auto_colonies"`
	ManualAdded    []Colony    `json:"manual_added"`
	ManualRemoved  []Colony    `json:"manual_removed"`
	LastCount      int         `json:"last_count"`
	LastParameters *Parameters `json:"last_parameters,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewImageRecord создаёт пустую запись для только что загруженного файла.
func NewImageRecord(id, sessionID, filename string) *ImageRecord {
	return &ImageRecord{
		ID:        id,
		SessionID: sessionID,
		Filename:  filename,
		CreatedAt: time.Now().UTC(),
	}
}

// FinalCount пересчитывает итог из текущих списков записи.
func (r *ImageRecord) FinalCount() int {
	return r.Reconcile().FinalCount
}

// Reconcile сводит автоматический счёт записи с ручными правками.
func (r *ImageRecord) Reconcile() Reconciliation {
	return Reconcile(r.LastCount, r.ManualAdded, r.ManualRemoved)
}

// Clone возвращает глубокую копию записи.
func (r *ImageRecord) Clone() *ImageRecord {
	out := *r
	out.AutoColonies = CloneColonies(r.AutoColonies)
	out.ManualAdded = CloneColonies(r.ManualAdded)
	out.ManualRemoved = CloneColonies(r.ManualRemoved)
	if r.LastParameters != nil {
		p := *r.LastParameters
		out.LastParameters = &p
	}
	return &out
}

// Session группирует изображения одной загрузки.
type Session struct {
	ID        string
	ImageIDs  []string
	CreatedAt time.Time
}
