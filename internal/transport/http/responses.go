package httpapi

import (
	"verity/internal/inspect"
	"verity/internal/migrate"
)

type reportResponse struct {
	*inspect.Report
	DIDReady bool `json:"did_ready"`
}

type statusResponse struct {
	Migrations []migrate.StatusEntry `json:"migrations"`
}

type applyResponse struct {
	RunID   string `json:"run_id"`
	Applied []int  `json:"applied"`
	Skipped []int  `json:"skipped"`
}
