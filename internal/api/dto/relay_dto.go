package dto

import "encoding/json"

// RelayResponse is the JSON body of every webhook response.
type RelayResponse struct {
	Status         string          `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	Stage          string          `json:"stage,omitempty"`
	UpstreamStatus int             `json:"upstream_status,omitempty"`
	Detail         string          `json:"detail,omitempty"`
	Ticket         json.RawMessage `json:"ticket,omitempty"`
}

// StatusResponse is returned by the root health route.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
