package scoring

import (
	"math"
	"strconv"
	"strings"
)

// RawAttestation is an untyped provider attestation as received on the wire.
// Providers disagree on field naming, so extraction probes several known
// paths rather than binding to a schema.
type RawAttestation map[string]any

// providerName resolves the provider label from the common locations,
// lowercased. Unknown shapes yield "".
func providerName(a RawAttestation) string {
	if s, ok := a["provider"].(string); ok {
		return strings.ToLower(s)
	}
	if s, ok := a["providerName"].(string); ok {
		return strings.ToLower(s)
	}
	if claim, ok := a["claimData"].(map[string]any); ok {
		if s, ok := claim["provider"].(string); ok {
			return strings.ToLower(s)
		}
	}
	return ""
}

// readPathNumber walks dotted paths in order and returns the first numeric
// value found. Numeric strings count; anything else does not. Non-finite
// values are treated as absent: ParseFloat accepts "Inf" and "NaN", and a
// score derived from them would poison every downstream computation and
// the JSON response encoding.
func readPathNumber(a RawAttestation, paths ...string) (float64, bool) {
	for _, path := range paths {
		var cur any = map[string]any(a)
		found := true
		for _, part := range strings.Split(path, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			cur, ok = m[part]
			if !ok {
				found = false
				break
			}
		}
		if !found {
			continue
		}

		switch v := cur.(type) {
		case float64:
			if isFinite(v) {
				return v, true
			}
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case string:
			if n, err := strconv.ParseFloat(v, 64); err == nil && isFinite(n) {
				return n, true
			}
		}
	}
	return 0, false
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func maxSignal(attestations []RawAttestation, provider func(string) bool, paths ...string) float64 {
	var best float64
	for _, a := range attestations {
		if !provider(providerName(a)) {
			continue
		}
		if v, ok := readPathNumber(a, paths...); ok && v > best {
			best = v
		}
	}
	return best
}

func extractGithubCommits(attestations []RawAttestation) float64 {
	return maxSignal(attestations,
		func(p string) bool { return strings.Contains(p, "github") },
		"commit_count", "commits", "data.commit_count", "data.commits")
}

func extractSpotifyHours(attestations []RawAttestation) float64 {
	return maxSignal(attestations,
		func(p string) bool { return strings.Contains(p, "spotify") },
		"playtime_hours", "hours", "data.playtime_hours", "data.hours")
}

func extractTwitterSignals(attestations []RawAttestation) (accountAgeDays, activityScore float64) {
	isTwitter := func(p string) bool {
		return strings.Contains(p, "twitter") || strings.Contains(p, "x.com")
	}
	accountAgeDays = maxSignal(attestations, isTwitter,
		"account_age_days", "age_days", "data.account_age_days")
	activityScore = maxSignal(attestations, isTwitter,
		"activity_score", "engagement_score", "data.activity_score")
	return accountAgeDays, activityScore
}

func extractGoogleFallbackAgeDays(attestations []RawAttestation) float64 {
	return maxSignal(attestations,
		func(p string) bool { return strings.Contains(p, "google") },
		"account_age_days", "age_days", "data.account_age_days")
}
