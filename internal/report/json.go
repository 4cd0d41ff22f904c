package report

import "encoding/json"

// JSON renders a Report as structured JSON for automation.
type JSON struct{}

// NewJSON creates a JSON renderer.
func NewJSON() *JSON {
	return &JSON{}
}

type jsonOutput struct {
	Version string  `json:"version"`
	OK      bool    `json:"ok"`
	Report  *Report `json:"report"`
}

// Render formats the report as JSON.
func (j *JSON) Render(r *Report) string {
	data, err := json.MarshalIndent(jsonOutput{Version: "1", OK: r.Failed == 0, Report: r}, "", "  ")
	if err != nil {
		errJSON, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(errJSON)
	}
	return string(data) + "\n"
}
