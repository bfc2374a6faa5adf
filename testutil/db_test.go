package testutil_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-basecamp/testutil"
)

func TestCreateTrip_RemovedWithItsBasecampAfterTest(t *testing.T) {
	pool := testutil.NewMigratedPool(t)
	ctx := context.Background()

	var tripID uuid.UUID
	t.Run("fixture", func(t *testing.T) {
		id := testutil.CreateTrip(t, pool)
		testutil.WriteBasecamp(t, pool, id, "1 Quay St")
		testutil.WriteBasecamp(t, pool, id, "2 Quay St")
		tripID = id

		var address string
		var version int64
		err := pool.QueryRow(ctx,
			`SELECT address, version FROM trip_basecamps WHERE trip_id = $1`, id).Scan(&address, &version)
		require.NoError(t, err)
		assert.Equal(t, "2 Quay St", address)
		assert.Equal(t, int64(2), version)
	})

	var trips, basecamps int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM trips WHERE id = $1`, tripID).Scan(&trips))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM trip_basecamps WHERE trip_id = $1`, tripID).Scan(&basecamps))
	assert.Zero(t, trips, "trip is deleted by the fixture cleanup")
	assert.Zero(t, basecamps, "basecamps cascade with the trip")
}
