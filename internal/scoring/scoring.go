// Package scoring turns raw provider attestations into a bounded trust score.
// The scoring rules are pinned by a versioned model string whose SHA-256 hash
// travels inside every signed payload, so verifiers can tell which rule set
// produced a score.
package scoring

import (
	"crypto/sha256"
)

// ModelV0 is the canonical description of the version 0 rule set. Changing
// this string changes the model hash and invalidates downstream pinning.
const ModelV0 = "github>50:+40|spotify(hours>10):+30|twitter(age>365&&activity>=50):+20|guest=25|bot=0|cap=100|v0"

// ModelV0Hash returns the SHA-256 digest of the model string.
func ModelV0Hash() [32]byte {
	return sha256.Sum256([]byte(ModelV0))
}

// Mode classifies the requesting user before scoring is applied.
type Mode string

const (
	ModeBotSuspected Mode = "bot_suspected"
	ModeGuest        Mode = "guest"
	ModeVerified     Mode = "verified"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeBotSuspected, ModeGuest, ModeVerified:
		return true
	}
	return false
}

// Code returns the wire encoding of the mode.
func (m Mode) Code() uint8 {
	switch m {
	case ModeBotSuspected:
		return 0
	case ModeGuest:
		return 1
	default:
		return 2
	}
}

// Adapter mask bits, one per contributing provider.
const (
	MaskGithub  uint8 = 0b001
	MaskSpotify uint8 = 0b010
	MaskTwitter uint8 = 0b100
)

// Breakdown is the full scoring explanation returned alongside the total.
// Signal values keep the strongest observation per provider; points are the
// rule outcomes those signals earned.
type Breakdown struct {
	GithubCommits         float64 `json:"githubCommits"`
	GithubPoints          int     `json:"githubPoints"`
	SpotifyHours          float64 `json:"spotifyHours"`
	SpotifyPoints         int     `json:"spotifyPoints"`
	TwitterAccountAgeDays float64 `json:"twitterAccountAgeDays"`
	TwitterActivityScore  float64 `json:"twitterActivityScore"`
	TwitterPoints         int     `json:"twitterPoints"`
	GoogleFallbackAgeDays float64 `json:"googleFallbackAgeDays"`
	GoogleFallbackPoints  int     `json:"googleFallbackPoints"`
	AdapterMask           uint8   `json:"adapterMask"`
	TotalScore            int     `json:"totalScore"`
}

// ComputeBreakdown scores the attestation set under model v0. The result is
// deterministic for a given set regardless of attestation order.
func ComputeBreakdown(attestations []RawAttestation) Breakdown {
	githubCommits := extractGithubCommits(attestations)
	spotifyHours := extractSpotifyHours(attestations)
	twitterAge, twitterActivity := extractTwitterSignals(attestations)
	googleAgeDays := extractGoogleFallbackAgeDays(attestations)

	var githubPoints, spotifyPoints, twitterPoints int
	if githubCommits > 50 {
		githubPoints = 40
	}
	if spotifyHours > 10 {
		spotifyPoints = 30
	}
	if twitterAge > 365 && twitterActivity >= 50 {
		twitterPoints = 20
	}
	// Google attests presence only; it contributes no points under v0.

	var mask uint8
	if githubPoints > 0 {
		mask |= MaskGithub
	}
	if spotifyPoints > 0 {
		mask |= MaskSpotify
	}
	if twitterPoints > 0 {
		mask |= MaskTwitter
	}

	total := githubPoints + spotifyPoints + twitterPoints
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	return Breakdown{
		GithubCommits:         githubCommits,
		GithubPoints:          githubPoints,
		SpotifyHours:          spotifyHours,
		SpotifyPoints:         spotifyPoints,
		TwitterAccountAgeDays: twitterAge,
		TwitterActivityScore:  twitterActivity,
		TwitterPoints:         twitterPoints,
		GoogleFallbackAgeDays: googleAgeDays,
		GoogleFallbackPoints:  0,
		AdapterMask:           mask,
		TotalScore:            total,
	}
}

// ApplyMode folds the user mode into a computed breakdown. Bot-suspected
// users are zeroed entirely, mask included; guests are floored at 25 so
// anonymous buyers are not priced as bots.
func ApplyMode(base Breakdown, mode Mode) Breakdown {
	switch mode {
	case ModeBotSuspected:
		return Breakdown{}
	case ModeGuest:
		if base.TotalScore < 25 {
			base.TotalScore = 25
		}
		return base
	default:
		return base
	}
}

// Compute scores the attestations and applies the mode in one step.
func Compute(attestations []RawAttestation, mode Mode) Breakdown {
	return ApplyMode(ComputeBreakdown(attestations), mode)
}
