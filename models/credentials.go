package models

import "log/slog"

// Credentials are the login details for the dashboard under test.
type Credentials struct {
	Email    string
	Password string
}

// LogValue keeps the password out of logs.
func (c Credentials) LogValue() slog.Value {
	pw := ""
	if c.Password != "" {
		pw = "[redacted]"
	}
	return slog.GroupValue(
		slog.String("email", c.Email),
		slog.String("password", pw),
	)
}
