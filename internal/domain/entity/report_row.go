package entity

// ReportRow одна строка табличного отчёта: файл, счёт и дополнительные колонки
type ReportRow struct {
	Filename string
	Count    int
	Fields   []Field
}

// NewReportRow строит строку пакетного отчёта с колонками параметров
func NewReportRow(filename string, count int, params Parameters) ReportRow {
	return ReportRow{Filename: filename, Count: count, Fields: params.Fields()}
}
