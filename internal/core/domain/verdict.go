package domain

// Verdict is the transient result of validating a token. It is produced
// per-call by the token validator and consumed immediately by the calling
// middleware; it is never persisted.
type Verdict struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Error    string `json:"error"`
}

// Invalid builds a rejection verdict carrying a human-readable reason.
func Invalid(reason string) Verdict {
	return Verdict{Valid: false, Error: reason}
}
