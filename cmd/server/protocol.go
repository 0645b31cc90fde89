// Package main provides a TCP server that runs deltactl commands.
package main

import (
	"github.com/goccy/go-json"

	"github.com/nickyhof/deltactl"
)

// Response represents the server's response to a request.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // command name or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// AuthResponse is the result of a successful AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses one request line. Fields are those of
// deltactl.Command: command, table, limit and sql.
func DecodeRequest(data []byte) (deltactl.Command, error) {
	var cmd deltactl.Command
	err := json.Unmarshal(data, &cmd)
	return cmd, err
}
