package entity

// Reconciliation разбивка итогового счёта.
type Reconciliation struct {
	AutoCount          int `json:"auto_count"`
	ManualAddedCount   int `json:"manual_added"`
	ManualRemovedCount int `json:"manual_removed"`
	FinalCount         int `json:"final_count"`
}

// Reconcile складывает автоматический счёт с ручными правками.
// Удалённые колонии учитываются по количеству, а не сопоставляются
// с конкретными автоматическими детекциями.
func Reconcile(autoCount int, added, removed []Colony) Reconciliation {
	return Reconciliation{
		AutoCount:          autoCount,
		ManualAddedCount:   len(added),
		ManualRemovedCount: len(removed),
		FinalCount:         autoCount + len(added) - len(removed),
	}
}
