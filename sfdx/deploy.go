package sfdx

import (
	"bytes"
	"encoding/json"
)

type SourceComponent struct {
	State    string `json:"state"`
	FullName string `json:"fullName"`
	Type     string `json:"type"`
	FilePath string `json:"filePath"`
	Error    string `json:"error,omitempty"`
}

type DeployResult struct {
	DeployedSource []SourceComponent `json:"deployedSource"`
	Details        *DeployDetails    `json:"details,omitempty"`
}

type PushResult struct {
	PushedSource []SourceComponent `json:"pushedSource"`
}

type DeployDetails struct {
	ComponentFailures ComponentFailures `json:"componentFailures"`
}

type ComponentFailure struct {
	ComponentType string      `json:"componentType"`
	FullName      string      `json:"fullName"`
	FileName      string      `json:"fileName"`
	Problem       string      `json:"problem"`
	ProblemType   string      `json:"problemType"`
	LineNumber    json.Number `json:"lineNumber,omitempty"`
}

// ComponentFailures accepts the metadata API's habit of sending a single
// failure as an object instead of a one-element array.
type ComponentFailures []ComponentFailure

func (c *ComponentFailures) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*c = nil
		return nil
	}
	if data[0] == '{' {
		var one ComponentFailure
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*c = ComponentFailures{one}
		return nil
	}
	var many []ComponentFailure
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*c = many
	return nil
}
