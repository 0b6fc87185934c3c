package sfdx

import (
	"encoding/json"
	"fmt"
)

const (
	StatusOK     = 0
	StatusFailed = 1
)

// Response is the envelope every --json command prints.
type Response struct {
	Status   int             `json:"status"`
	Name     string          `json:"name,omitempty"`
	Message  string          `json:"message,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

func (r *Response) Failed() bool {
	return r.Status != StatusOK
}

func (r *Response) HasResult() bool {
	return len(r.Result) > 0 && string(r.Result) != "null"
}

// Decode unmarshals the result payload into v.
func (r *Response) Decode(v interface{}) error {
	if !r.HasResult() {
		return fmt.Errorf("sfdx: response has no result (status=%d, message=%q)", r.Status, r.Message)
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("sfdx: decode result: %w", err)
	}
	return nil
}

func (r *Response) String() string {
	return fmt.Sprintf("status=%d name=%s message=%q result=%s", r.Status, r.Name, r.Message, string(r.Result))
}
