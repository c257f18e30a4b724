package application

import "strings"

// ErrorClass is the taxonomy a remote-call failure maps onto.
type ErrorClass string

const (
	// ClassTransient covers retryable failures: timeouts, 5xx-style errors,
	// anything not recognized as an abuse signal.
	ClassTransient ErrorClass = "transient"
	// ClassChallenge covers abuse-defense responses (CAPTCHA and friends).
	ClassChallenge ErrorClass = "challenge"
)

// defaultChallengeKeywords are the substrings that mark an error as an
// abuse-defense response.
var defaultChallengeKeywords = []string{
	"captcha",
	"challenge required",
	"human verification",
	"forbidden",
	"403",
}

// defaultSoldOutKeywords mark a claim failure as a race loss rather than an
// error: the item was gone by the time the order call landed.
var defaultSoldOutKeywords = []string{
	"sold out",
	"sold_out",
	"items_available=0",
}

// Classifier maps remote-call failure text onto the error taxonomy by
// case-insensitive substring match. This is a heuristic, not a contract with
// the remote system: a false negative degrades to ordinary retry/backoff,
// and a false positive only costs an oversized cooldown.
type Classifier struct {
	challenge []string
	soldOut   []string
}

// NewClassifier builds a Classifier with the given challenge keyword list.
// An empty list selects the defaults. Keywords are matched lowercase.
func NewClassifier(challengeKeywords []string) *Classifier {
	c := &Classifier{
		challenge: defaultChallengeKeywords,
		soldOut:   defaultSoldOutKeywords,
	}
	if len(challengeKeywords) > 0 {
		lowered := make([]string, 0, len(challengeKeywords))
		for _, kw := range challengeKeywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				lowered = append(lowered, kw)
			}
		}
		if len(lowered) > 0 {
			c.challenge = lowered
		}
	}
	return c
}

// Classify maps an error message to Transient or Challenge.
func (c *Classifier) Classify(errorMessage string) ErrorClass {
	if containsAny(errorMessage, c.challenge) {
		return ClassChallenge
	}
	return ClassTransient
}

// IsSoldOut reports whether a claim failure indicates the item sold out.
// Sellouts are expected race losses, not errors.
func (c *Classifier) IsSoldOut(errorMessage string) bool {
	return containsAny(errorMessage, c.soldOut)
}

func containsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
