package models

// PeriodStat is one row of an aggregate count grouped by calendar period
// (day, month or year, depending on the query) and uploader.
type PeriodStat struct {
	Period     string `json:"period"`
	UploadedBy string `json:"uploadedBy"`
	Count      int64  `json:"count"`
}

// SyncReport aggregates the outcome of one sync run.
type SyncReport struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
