// Package model defines shared data structures.
package model

import "time"

// Config defines runtime settings resolved from flags and the config file.
type Config struct {
	LookupURL     string
	LookupTimeout time.Duration
	FallbackID    string
	Topic         string
	DurationSec   int
	ContentLength int
	DBPath        string
	LogPath       string
	LogLevel      string
}

// LicenseCode is a single-use token. Used flips false->true exactly once.
type LicenseCode struct {
	Code        string     `json:"code"`
	GeneratedAt time.Time  `json:"generated"`
	GeneratedBy string     `json:"generatedByIP"`
	Used        bool       `json:"used"`
	UsedAt      *time.Time `json:"usedAt"`
	UsedBy      *string    `json:"usedByIP"`
}

// ClientAuthorization records whether a client identifier may take the
// assessment. At most one exists per identifier.
type ClientAuthorization struct {
	Identifier   string     `json:"address"`
	AuthorizedAt time.Time  `json:"authorizedAt"`
	LastLogin    time.Time  `json:"lastLogin"`
	Active       bool       `json:"active"`
	SourceCode   *string    `json:"authCode"`
	BannedAt     *time.Time `json:"bannedAt,omitempty"`
	UnbannedAt   *time.Time `json:"unbannedAt,omitempty"`
}

// Records is the whole persisted state. It is read and replaced as a unit.
type Records struct {
	Codes          []LicenseCode         `json:"authCodes"`
	Authorizations []ClientAuthorization `json:"authorizedIPs"`
	LastUpdated    time.Time             `json:"lastUpdated"`
}

// AccessStatus is the admission decision for a client identifier.
type AccessStatus int

const (
	Unauthorized AccessStatus = iota
	Active
	Banned
)

func (s AccessStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Banned:
		return "banned"
	default:
		return "unauthorized"
	}
}

// RedeemResult is the outcome of redeeming a license code.
type RedeemResult int

const (
	Invalid RedeemResult = iota
	Authorized
)

func (r RedeemResult) String() string {
	if r == Authorized {
		return "authorized"
	}
	return "invalid"
}

// AuthorizationEntry annotates an authorization for admin display.
type AuthorizationEntry struct {
	ClientAuthorization
	Current bool
}

// Stats summarizes a scored assessment.
type Stats struct {
	CorrectChars    int
	ErrorChars      int
	TotalChars      int
	WPM             int
	AccuracyPercent int
}

// Verdict tags a typed character.
type Verdict int

const (
	Correct Verdict = iota
	Error
)

// CharVerdict is one typed character and its verdict.
type CharVerdict struct {
	Char    rune
	Verdict Verdict
}

// ReviewLine reconstructs one sentence for the review screen.
type ReviewLine struct {
	SentenceIndex int
	Original      string
	Typed         string
	CharVerdicts  []CharVerdict
}
