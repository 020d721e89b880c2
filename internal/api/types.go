// File path: internal/api/types.go
package api

import "time"

type chatRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response  string   `json:"response"`
	Submitted bool     `json:"submitted,omitempty"`
	Rejected  []string `json:"rejected_files,omitempty"`
}

type chatStateResponse struct {
	Email  string `json:"email"`
	State  string `json:"state"`
	Active bool   `json:"active"`
	Cursor int    `json:"cursor"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type ratesResponse struct {
	Rates map[string]string `json:"rates"`
}

type resourcesResponse struct {
	Programs map[string]string `json:"programs"`
}

type submissionDetail struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Answers     []submissionField `json:"answers"`
	Files       []submissionFile  `json:"files"`
}

type submissionField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type submissionFile struct {
	OriginalName string `json:"original_name"`
	StoredID     string `json:"stored_id"`
	SizeBytes    int64  `json:"size_bytes"`
}
