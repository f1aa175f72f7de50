package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCriteria_ExactAddress(t *testing.T) {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	criteria := searchCriteria("orders@foodco.kz", day)

	require.Contains(t, criteria.Header, "From")
	assert.Equal(t, []string{"orders@foodco.kz"}, criteria.Header["From"])
}

func TestSearchCriteria_DomainPattern(t *testing.T) {
	// a bare "@domain" pattern rides on FROM substring matching, so it
	// covers a@wholesaler.test and b@wholesaler.test alike
	criteria := searchCriteria("@wholesaler.test", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	require.Contains(t, criteria.Header, "From")
	assert.Equal(t, []string{"@wholesaler.test"}, criteria.Header["From"])
	assert.Contains(t, "a@wholesaler.test", criteria.Header["From"][0])
	assert.Contains(t, "b@wholesaler.test", criteria.Header["From"][0])
}

func TestSearchCriteria_DayWindow(t *testing.T) {
	// the requested time of day is ignored; the window is the whole UTC
	// calendar day
	criteria := searchCriteria("orders@foodco.kz", time.Date(2024, 5, 10, 17, 45, 3, 0, time.UTC))

	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), criteria.Since)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), criteria.Before)
}
