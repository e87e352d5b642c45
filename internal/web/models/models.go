package models

import "encoding/json"

// CommandRequest is the body of a user-initiated device command
type CommandRequest struct {
	Command    string          `json:"command" binding:"required"`
	Parameters json.RawMessage `json:"parameters"`
}
