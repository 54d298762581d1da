package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carworth/carworth/internal/domain"
)

func TestMemoryTracking_DeleteContract(t *testing.T) {
	m := NewMemoryTracking()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, &domain.RefreshTrackingRecord{VehicleID: "veh-1", UserID: "user-1"}))
	require.NoError(t, m.Delete(ctx, "veh-1"))

	_, err := m.Get(ctx, "veh-1")
	assert.ErrorIs(t, err, domain.ErrNotTracked)

	// Deleting what is not tracked is an error, same as the SQL store.
	err = m.Delete(ctx, "veh-1")
	assert.ErrorIs(t, err, domain.ErrNotTracked)
	assert.ErrorIs(t, m.Delete(ctx, "veh-never"), domain.ErrNotTracked)
}
