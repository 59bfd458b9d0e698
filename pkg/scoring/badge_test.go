package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		score    float64
		security bool
		expected Badge
	}{
		{10.0, true, BadgeVerified},
		{8.0, true, BadgeVerified},
		{8.0, false, BadgeReviewed},
		{9.9, false, BadgeReviewed},
		{7.99, true, BadgeReviewed},
		{7.0, false, BadgeReviewed},
		{6.99, true, BadgeUnverified},
		{5.0, false, BadgeUnverified},
		{4.99, true, BadgeFlagged},
		{0, false, BadgeFlagged},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BadgeFor(tt.score, tt.security), "score=%.2f security=%v", tt.score, tt.security)
	}
}

func TestBadgeMonotonic(t *testing.T) {
	for _, security := range []bool{false, true} {
		prev := -1
		for i := 0; i <= 1000; i++ {
			b := BadgeFor(float64(i)/100, security)
			assert.GreaterOrEqual(t, b.Rank(), prev)
			prev = b.Rank()
			if !security {
				assert.NotEqual(t, BadgeVerified, b)
			}
		}
	}
}

func TestBadgeRank(t *testing.T) {
	for i := 1; i < len(Badges); i++ {
		assert.Greater(t, Badges[i-1].Rank(), Badges[i].Rank())
	}
	assert.Equal(t, -1, Badge("Gold").Rank())
}
