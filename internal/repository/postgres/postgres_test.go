package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/database"
	"github.com/vedran77/matrimony/internal/repository/repotest"
)

// Runs against a real database only when MATRIMONY_TEST_DATABASE_URL is set;
// make db-up test-integration provides one.
func TestContract(t *testing.T) {
	dsn := os.Getenv("MATRIMONY_TEST_DATABASE_URL")
	if dsn == "" {
		if os.Getenv("MATRIMONY_REQUIRE_INTEGRATION") != "" {
			t.Fatal("MATRIMONY_TEST_DATABASE_URL not set")
		}
		t.Skip("MATRIMONY_TEST_DATABASE_URL not set, see make test-integration")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = database.Migrate(ctx, pool)
	require.NoError(t, err)

	repotest.Run(t, func(t *testing.T) repotest.Repos {
		return repotest.Repos{
			Users:        NewUserRepo(pool),
			Photos:       NewPhotoRepo(pool),
			Interactions: NewInteractionRepo(pool),
			Matches:      NewMatchRepo(pool),
			Messages:     NewMessageRepo(pool),
		}
	})
}
