// Package dto defines the request and response shapes of the HTTP API.
// Persistence models never cross the API boundary directly.
package dto

// ErrorResponse standard error envelope
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Pagination standard pagination block for list responses
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}
