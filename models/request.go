package models

// RunRequest is the payload for POST /api/v1/runs. Every field is optional;
// unset fields fall back to the server configuration.
type RunRequest struct {
	// Email and Password override the configured credentials.
	Email    string `json:"email,omitempty" binding:"omitempty,email"`
	Password string `json:"password,omitempty"`

	// Strict makes every extraction group failure fatal.
	Strict *bool `json:"strict,omitempty"`

	// Timeout is the per-attempt limit in seconds. Max: 600.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=600"`

	// Retries overrides the number of whole-run retries. Max: 5.
	Retries *int `json:"retries,omitempty" binding:"omitempty,min=0,max=5"`
}
