package model

// SelectionRecord maps a session to its currently active bot configuration.
// It is the only cross-request mutable state outside the context store and
// is always replaced wholesale, never partially mutated.
type SelectionRecord struct {
	SessionKey     string `json:"sessionKey"`
	ActiveConfigID string `json:"activeConfigId"`
}
