// pkg/core/report.go
package core

// Report is one line of the battle log. Reports are presentation only; the
// ordering mirrors the resolution sequence.
type Report struct {
	Seq       int      `json:"seq"`
	Phase     int      `json:"phase"`
	Attack    string   `json:"attack,omitempty"`
	Subject   EntityID `json:"subject"`
	MessageID int      `json:"messageId"`
	Indent    int      `json:"indent"`
	Text      string   `json:"text"`
}
