package model

// AlertMessage describes a quality or pipeline failure to be dispatched.
// Ephemeral: constructed, delivered and discarded; delivery outcomes are
// recorded as log events instead.
type AlertMessage struct {
	Severity   Severity `json:"severity"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}
