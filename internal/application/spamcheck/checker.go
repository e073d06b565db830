package spamcheck

import (
	"regexp"
	"strings"
)

// Result reports whether a message tripped any heuristic and which ones.
type Result struct {
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons"`
}

type CheckRequest struct {
	Message string `json:"message" validate:"required"`
}

var suspiciousKeywords = []string{
	"free",
	"win",
	"prize",
	"urgent",
	"limited time",
	"click here",
	"verify",
	"account suspended",
	"password reset",
	"bank details",
	"social security",
	"lottery",
	"inheritance",
	"unclaimed funds",
	"investment opportunity",
	"make money",
	"guaranteed",
	"no risk",
	"act now",
	"exclusive offer",
}

var urlPatterns = []string{
	"http://",
	"https://",
	".com",
	".net",
	".org",
	".info",
	"bit.ly",
	"tinyurl.com",
}

var (
	specialCharRe = regexp.MustCompile(`[!#$%^&*()+={}\[\]|\\:;"'<>?,/]{3,}`)
	emailRe       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	urgencyRe     = regexp.MustCompile(`\b(urgent|immediate|now|today|asap|last chance)\b`)
)

// Checker classifies free-form text with keyword, URL, email and urgency
// heuristics. Stateless and safe for concurrent use.
type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

func (c *Checker) Check(message string) Result {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return Result{Reasons: []string{"Invalid or missing message."}}
	}

	var reasons []string
	if containsAny(msg, suspiciousKeywords) {
		reasons = append(reasons, "Contains suspicious keywords")
	}
	if specialCharRe.MatchString(msg) {
		reasons = append(reasons, "Excessive use of special characters")
	}
	if containsAny(msg, urlPatterns) {
		reasons = append(reasons, "Contains potential URLs")
	}
	if emailRe.MatchString(msg) {
		reasons = append(reasons, "Contains email-like pattern")
	}
	if urgencyRe.MatchString(msg) {
		reasons = append(reasons, "Contains urgency phrases")
	}

	if len(reasons) == 0 {
		return Result{Reasons: []string{"No suspicious patterns found."}}
	}
	return Result{Suspicious: true, Reasons: reasons}
}

func containsAny(msg string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
