// Package botcheck downgrades guest requests that look automated. It is a
// heuristic, not an authentication gate: verified users have already proven
// ownership cryptographically and are never reclassified here.
package botcheck

import (
	"log/slog"
	"strings"

	ua "github.com/mssola/useragent"

	"fairgate/internal/scoring"
)

// Classifier applies the user-agent heuristic to the requested mode.
type Classifier struct {
	logger *slog.Logger
}

// New builds a Classifier.
func New(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger}
}

// Classify returns the effective mode. Guests with a missing or bot-like
// User-Agent are treated as bot_suspected, which zeroes their score and
// prices them accordingly.
func (c *Classifier) Classify(requested scoring.Mode, userAgent string) scoring.Mode {
	if requested != scoring.ModeGuest {
		return requested
	}
	if looksAutomated(userAgent) {
		c.logger.Info("guest downgraded to bot_suspected",
			"user_agent", truncate(userAgent, 120))
		return scoring.ModeBotSuspected
	}
	return requested
}

func looksAutomated(userAgent string) bool {
	trimmed := strings.TrimSpace(userAgent)
	if trimmed == "" {
		return true
	}
	return ua.New(trimmed).Bot()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
