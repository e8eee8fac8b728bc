package repo

import (
	"context"
	"os"
	"testing"
	"time"

	dmn "github.com/beka-birhanu/vinom-snake/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newTestRepo connects to TEST_MONGO_URI, skipping when it is unset.
func newTestRepo(t *testing.T) *DeathRecordRepo {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := "snake_test_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_ = client.Database(db).Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	r := NewDeathRecordRepo(client, db, "deaths")
	require.NoError(t, r.EnsureIndexes(ctx))
	return r
}

func TestDeathRecordRepo(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for n := range 3 {
		require.NoError(t, r.Save(ctx, &dmn.DeathRecord{
			ID:     uuid.New(),
			RunID:  "run-a",
			PID:    n + 1,
			Length: n + 2,
			Tick:   uint64(n * 10),
			DiedAt: base.Add(time.Duration(n) * time.Second),
		}))
	}
	require.NoError(t, r.Save(ctx, &dmn.DeathRecord{ID: uuid.New(), RunID: "run-b", PID: 9, DiedAt: base}))

	records, err := r.ByRun(ctx, "run-a", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].PID)
	assert.Equal(t, 2, records[1].PID)
	assert.Equal(t, base.Add(2*time.Second), records[0].DiedAt.UTC())

	none, err := r.ByRun(ctx, "run-c", 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	dup := records[0]
	assert.Error(t, r.Save(ctx, dup))
}
