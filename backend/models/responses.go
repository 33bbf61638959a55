package models

import (
	"time"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError carries a stable machine code next to the human message.
// Details maps request fields to their validation problem.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type PaginatedResponse struct {
	APIResponse
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

type PaginationInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewSuccessResponse(data any, message string) *APIResponse {
	return &APIResponse{Success: true, Message: message, Data: data, Timestamp: time.Now()}
}

func NewErrorResponse(code, message string, details map[string]string) *APIResponse {
	return &APIResponse{
		Error:     &APIError{Code: code, Message: message, Details: details},
		Timestamp: time.Now(),
	}
}

func NewPaginatedResponse(data any, pagination *PaginationInfo, message string) *PaginatedResponse {
	return &PaginatedResponse{
		APIResponse: *NewSuccessResponse(data, message),
		Pagination:  pagination,
	}
}

// NewPaginationInfo describes one page of size limit out of total rows.
// Pages are 1-based; an empty result still reports a single page.
func NewPaginationInfo(page, limit int, total int64) *PaginationInfo {
	if limit <= 0 {
		limit = 1
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages == 0 {
		pages = 1
	}
	return &PaginationInfo{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is the body of GET /health. Status degrades as soon as one
// component reports unhealthy.
type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Commit     string                     `json:"commit,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

type ComponentHealth struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

func NewHealthCheck(version, commit string) *HealthCheck {
	return &HealthCheck{
		Status:     StatusHealthy,
		Timestamp:  time.Now(),
		Version:    version,
		Commit:     commit,
		Components: map[string]ComponentHealth{},
	}
}

// Report records the outcome of probing one component. A nil err is healthy.
func (h *HealthCheck) Report(component string, err error, note string) {
	if err != nil {
		h.Components[component] = ComponentHealth{Status: StatusUnhealthy, Message: err.Error()}
		h.Status = StatusUnhealthy
		return
	}
	h.Components[component] = ComponentHealth{Status: StatusHealthy, Message: note}
}

func (h *HealthCheck) Healthy() bool {
	return h.Status == StatusHealthy
}
