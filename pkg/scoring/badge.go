package scoring

// Badge is the trust tier of a scored package
type Badge string

const (
	BadgeVerified   Badge = "Verified"
	BadgeReviewed   Badge = "Reviewed"
	BadgeUnverified Badge = "Unverified"
	BadgeFlagged    Badge = "Flagged"
)

// Badge score floors
const (
	VerifiedMin   = 8.0
	ReviewedMin   = 7.0
	UnverifiedMin = 5.0
)

// Badges lists every tier from highest to lowest
var Badges = []Badge{BadgeVerified, BadgeReviewed, BadgeUnverified, BadgeFlagged}

// BadgeFor maps an overall score and a security verdict to a badge.
// Verified is unreachable without a passed security scan.
func BadgeFor(score float64, securityPassed bool) Badge {
	switch {
	case score >= VerifiedMin && securityPassed:
		return BadgeVerified
	case score >= ReviewedMin:
		return BadgeReviewed
	case score >= UnverifiedMin:
		return BadgeUnverified
	default:
		return BadgeFlagged
	}
}

// Rank orders badges, higher is better. Unknown badges rank below Flagged.
func (b Badge) Rank() int {
	switch b {
	case BadgeVerified:
		return 3
	case BadgeReviewed:
		return 2
	case BadgeUnverified:
		return 1
	case BadgeFlagged:
		return 0
	default:
		return -1
	}
}
