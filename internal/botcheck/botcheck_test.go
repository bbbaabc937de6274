package botcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fairgate/internal/scoring"
)

const (
	chromeUA    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	googlebotUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestClassify(t *testing.T) {
	c := New(nil)

	t.Run("guest with a browser stays guest", func(t *testing.T) {
		assert.Equal(t, scoring.ModeGuest, c.Classify(scoring.ModeGuest, chromeUA))
	})

	t.Run("guest with a crawler UA is downgraded", func(t *testing.T) {
		assert.Equal(t, scoring.ModeBotSuspected, c.Classify(scoring.ModeGuest, googlebotUA))
	})

	t.Run("guest with no UA is downgraded", func(t *testing.T) {
		assert.Equal(t, scoring.ModeBotSuspected, c.Classify(scoring.ModeGuest, ""))
		assert.Equal(t, scoring.ModeBotSuspected, c.Classify(scoring.ModeGuest, "   "))
	})

	t.Run("verified is never downgraded", func(t *testing.T) {
		assert.Equal(t, scoring.ModeVerified, c.Classify(scoring.ModeVerified, googlebotUA))
		assert.Equal(t, scoring.ModeVerified, c.Classify(scoring.ModeVerified, ""))
	})

	t.Run("bot_suspected stays bot_suspected", func(t *testing.T) {
		assert.Equal(t, scoring.ModeBotSuspected, c.Classify(scoring.ModeBotSuspected, chromeUA))
	})
}
