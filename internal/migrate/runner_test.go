package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webtermos/backend/internal/store"
)

func TestRunAppliesInOrder(t *testing.T) {
	s := store.NewMemory()
	var applied []int
	migrations := map[int]Migration{
		1: func(context.Context, Context) error { applied = append(applied, 1); return nil },
		// 2 unregistered: versions are sparse
		3: func(context.Context, Context) error { applied = append(applied, 3); return nil },
	}
	r := NewRunner(s, 3, migrations, nil)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []int{1, 3}, applied)

	v, err := r.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestRunMonotonic(t *testing.T) {
	s := store.NewMemory()
	calls := 0
	migrations := map[int]Migration{
		1: func(context.Context, Context) error { calls++; return nil },
		2: func(context.Context, Context) error { calls++; return nil },
	}
	r := NewRunner(s, 2, migrations, nil)
	ctx := context.Background()

	require.NoError(t, r.Run(ctx))
	require.Equal(t, 2, calls)

	// Re-running at the target version is a no-op: no transform runs twice.
	require.NoError(t, r.Run(ctx))
	assert.Equal(t, 2, calls)
}

func TestRunFailureKeepsLastGoodVersion(t *testing.T) {
	s := store.NewMemory()
	boom := errors.New("boom")
	migrations := map[int]Migration{
		1: func(context.Context, Context) error { return nil },
		2: func(context.Context, Context) error { return boom },
		3: func(context.Context, Context) error { t.Fatal("must not run past a failure"); return nil },
	}
	r := NewRunner(s, 3, migrations, nil)
	ctx := context.Background()

	err := r.Run(ctx)
	require.ErrorIs(t, err, boom)

	// Aborted with the store at the last completed step, ready for a retry.
	v, err := r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRunResumesAfterFailure(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	firstCalls := 0
	failing := map[int]Migration{
		1: func(context.Context, Context) error { firstCalls++; return nil },
		2: func(context.Context, Context) error { return errors.New("transient") },
	}
	require.Error(t, NewRunner(s, 2, failing, nil).Run(ctx))
	require.Equal(t, 1, firstCalls)

	secondCalls := 0
	fixed := map[int]Migration{
		1: func(context.Context, Context) error { t.Fatal("already applied"); return nil },
		2: func(context.Context, Context) error { secondCalls++; return nil },
	}
	require.NoError(t, NewRunner(s, 2, fixed, nil).Run(ctx))
	assert.Equal(t, 1, secondCalls)
}

func TestRunRejectsNewerStore(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, store.Config, VersionKey, []byte("9")))

	r := NewRunner(s, 3, nil, nil)
	err := r.Run(ctx)
	assert.Error(t, err)
}

func TestRunFreshStoreDefaultsToZero(t *testing.T) {
	s := store.NewMemory()
	r := NewRunner(s, 0, nil, nil)

	v, err := r.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, v)
	require.NoError(t, r.Run(context.Background()))
}

func TestMigrationContextFileAccess(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.PutFile(ctx, s, store.FileRecord{
		Path: "/home/user/old.txt", Content: "x", Kind: "file", Modified: 1700000000000,
	}))

	migrations := map[int]Migration{
		1: migrateEpochSeconds,
	}
	require.NoError(t, NewRunner(s, 1, migrations, nil).Run(ctx))

	rec, err := store.GetFile(ctx, s, "/home/user/old.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), rec.Modified)
}

func TestBackfillModes(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.PutFile(ctx, s, store.FileRecord{
		Path: "/home/user/bare.txt", Content: "x", Kind: "file",
	}))
	require.NoError(t, store.PutFile(ctx, s, store.FileRecord{
		Path: "/home/user/dir", Kind: "directory",
	}))

	require.NoError(t, NewRunner(s, 2, map[int]Migration{2: migrateBackfillModes}, nil).Run(ctx))

	rec, err := store.GetFile(ctx, s, "/home/user/bare.txt")
	require.NoError(t, err)
	assert.Equal(t, "-rw-r--r--", rec.Permissions)
	assert.Equal(t, "user", rec.Owner)

	rec, err = store.GetFile(ctx, s, "/home/user/dir")
	require.NoError(t, err)
	assert.Equal(t, "drwxr-xr-x", rec.Permissions)
}
