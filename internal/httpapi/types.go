package httpapi

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// StartSessionRequest is the wire shape for POST /sessions.
type StartSessionRequest struct {
	Domain          string `json:"domain" validate:"required,hostname|fqdn"`
	PageLimit       int    `json:"page_limit" validate:"omitempty,min=1"`
	MaxDepth        int    `json:"max_depth" validate:"omitempty,min=0"`
	IncludeExisting bool   `json:"include_existing"`
}

// StartSessionResponse returns the created session and its effective
// configuration (spec.md §6: "returns session id + effective
// configuration").
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Domain    string `json:"domain"`
	PageLimit int    `json:"page_limit"`
	MaxDepth  int    `json:"max_depth"`
}

// CreateJobRequest is the wire shape for POST /jobs.
type CreateJobRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Domain    string `json:"domain" validate:"required"`
	URL       string `json:"url" validate:"required,url"`
	Depth     int    `json:"depth" validate:"min=0"`
	MaxDepth  int    `json:"max_depth" validate:"min=0"`
	EnableJS  bool   `json:"enable_js"`
}

// CreateJobResponse returns the created job and its assigned priority
// (spec.md §6).
type CreateJobResponse struct {
	JobID    string `json:"job_id"`
	Priority int    `json:"priority"`
}

// BulkImportResponse summarizes a bulk URL import grouped by host.
type BulkImportResponse struct {
	SessionsCreated int            `json:"sessions_created"`
	JobsCreated     int            `json:"jobs_created"`
	PerHost         map[string]int `json:"per_host"`
	Skipped         int            `json:"skipped"`
}

// AdminStatusResponse reports the current admin control flags. It carries
// no worker pool counters; per-session counters come from GET
// /sessions/{id}.
type AdminStatusResponse struct {
	CrawlEnabled bool `json:"crawl_enabled"`
	IndexEnabled bool `json:"index_enabled"`
	ForceStopped bool `json:"force_stopped"`
	IndexPaused  bool `json:"index_paused"`
}

func writeValidationError(err error) map[string]string {
	out := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
		return out
	}
	out["error"] = err.Error()
	return out
}
