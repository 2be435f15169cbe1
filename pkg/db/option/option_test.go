package option

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithQuerySortByFallsBackToCreatedAt(t *testing.T) {
	sort := WithQuerySortBy("password", "desc", map[string]bool{"name": true, "created_at": true})
	assert.Equal(t, "created_at", sort.Field)
	assert.True(t, sort.Desc)

	sort = WithQuerySortBy(" NAME ", "", map[string]bool{"name": true})
	assert.Equal(t, "name", sort.Field)
	assert.False(t, sort.Desc)
}
