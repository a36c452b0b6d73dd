package backend

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/LeJamon/goMarketd/internal/storage/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openManagers(t *testing.T) map[string]database.Manager {
	t.Helper()
	out := make(map[string]database.Manager)
	for _, name := range Names() {
		m, err := NewManager(name, t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close() })
		out[name] = m
	}
	return out
}

func TestBackends(t *testing.T) {
	ctx := context.Background()

	for name, manager := range openManagers(t) {
		t.Run(name, func(t *testing.T) {
			db, err := manager.OpenDB("conformance")
			require.NoError(t, err)

			t.Run("read write delete", func(t *testing.T) {
				_, err := db.Read(ctx, []byte("missing"))
				require.ErrorIs(t, err, database.ErrKeyNotFound)

				require.NoError(t, db.Write(ctx, []byte("k"), []byte("v1")))
				got, err := db.Read(ctx, []byte("k"))
				require.NoError(t, err)
				assert.Equal(t, []byte("v1"), got)

				got[0] = 'x'
				again, err := db.Read(ctx, []byte("k"))
				require.NoError(t, err)
				assert.Equal(t, []byte("v1"), again, "read must return a copy")

				require.NoError(t, db.Delete(ctx, []byte("k")))
				_, err = db.Read(ctx, []byte("k"))
				require.ErrorIs(t, err, database.ErrKeyNotFound)
			})

			t.Run("batch", func(t *testing.T) {
				require.NoError(t, db.Write(ctx, []byte("b/gone"), []byte("x")))
				require.NoError(t, db.Batch(ctx, []database.BatchOperation{
					database.Put([]byte("b/1"), []byte("one")),
					database.Put([]byte("b/2"), []byte("two")),
					database.Del([]byte("b/gone")),
				}))

				v, err := db.Read(ctx, []byte("b/2"))
				require.NoError(t, err)
				assert.Equal(t, "two", string(v))
				_, err = db.Read(ctx, []byte("b/gone"))
				require.ErrorIs(t, err, database.ErrKeyNotFound)

				err = db.Batch(ctx, []database.BatchOperation{{Type: database.BatchOpType(9), Key: []byte("b/3")}})
				require.Error(t, err)
				_, err = db.Read(ctx, []byte("b/3"))
				require.ErrorIs(t, err, database.ErrKeyNotFound)
			})

			t.Run("iterator", func(t *testing.T) {
				for i := 0; i < 5; i++ {
					require.NoError(t, db.Write(ctx, []byte(fmt.Sprintf("i/%d", i)), []byte{byte(i)}))
				}
				require.NoError(t, db.Write(ctx, []byte("j/0"), []byte{9}))

				it, err := db.Iterator(ctx, []byte("i/1"), []byte("i/4"))
				require.NoError(t, err)
				var keys []string
				for it.Next() {
					keys = append(keys, string(it.Key()))
				}
				require.NoError(t, it.Error())
				require.NoError(t, it.Close())
				assert.Equal(t, []string{"i/1", "i/2", "i/3"}, keys)

				prefix := []byte("i/")
				it, err = db.Iterator(ctx, prefix, database.PrefixEnd(prefix))
				require.NoError(t, err)
				n := 0
				for it.Next() {
					assert.Equal(t, []byte{byte(n)}, it.Value())
					n++
				}
				require.NoError(t, it.Close())
				assert.Equal(t, 5, n)
			})

			t.Run("concurrent writes", func(t *testing.T) {
				var wg sync.WaitGroup
				for w := 0; w < 8; w++ {
					wg.Add(1)
					go func(w int) {
						defer wg.Done()
						for i := 0; i < 20; i++ {
							key := []byte(fmt.Sprintf("c/%d/%d", w, i))
							assert.NoError(t, db.Write(ctx, key, key))
						}
					}(w)
				}
				wg.Wait()

				v, err := db.Read(ctx, []byte("c/7/19"))
				require.NoError(t, err)
				assert.Equal(t, "c/7/19", string(v))
			})

			require.NoError(t, manager.CloseDB("conformance"))
			require.ErrorIs(t, manager.CloseDB("conformance"), database.ErrDBNotOpen)
		})
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{Pebble, LevelDB} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			m, err := NewManager(name, dir)
			require.NoError(t, err)
			db, err := m.OpenDB("offers")
			require.NoError(t, err)
			require.NoError(t, db.Write(ctx, []byte("k"), []byte("v")))
			require.NoError(t, m.Close())

			m, err = NewManager(name, dir)
			require.NoError(t, err)
			defer m.Close()
			db, err = m.OpenDB("offers")
			require.NoError(t, err)
			v, err := db.Read(ctx, []byte("k"))
			require.NoError(t, err)
			assert.Equal(t, "v", string(v))
		})
	}
}

func TestNewManager(t *testing.T) {
	_, err := NewManager("bolt", t.TempDir())
	require.ErrorIs(t, err, database.ErrUnknownBackend)

	_, err = NewManager(Pebble, "")
	require.Error(t, err)

	m, err := NewManager("MEMORY", "")
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.True(t, Supported("LevelDB"))
	assert.False(t, Supported("badger"))
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("o0"), database.PrefixEnd([]byte("o/")))
	assert.Equal(t, []byte{0x02}, database.PrefixEnd([]byte{0x01, 0xff}))
	assert.Nil(t, database.PrefixEnd([]byte{0xff, 0xff}))
}
