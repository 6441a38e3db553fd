package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/roomboard/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "roomboard:occupancy:ATL:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "roomboard:occupancy:ATL:1", map[string]int{"filled_days": 3}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "roomboard:*"))
	assert.NoError(t, repo.Close())
}
