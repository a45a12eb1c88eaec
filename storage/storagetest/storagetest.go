// Package storagetest holds the conformance suite every storage.Repository must pass.
package storagetest

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfdesk/shelfadmin/storage"
)

var errAbort = errors.New("abort batch")

// Run exercises repo against the storage.Repository contract. repo must start empty.
func Run(t *testing.T, repo storage.Repository) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get("missing")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, repo.Batch(func(tx storage.BatchTx) error {
			return tx.Put("k1", []byte("v1"))
		}))
		got, err := repo.Get("k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		got, err := repo.Get("k1")
		require.NoError(t, err)
		got[0] = 'X'
		again, err := repo.Get("k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), again)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, repo.Batch(func(tx storage.BatchTx) error {
			return tx.Put("k1", []byte("v2"))
		}))
		got, err := repo.Get("k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("MultiKeyBatch", func(t *testing.T) {
		require.NoError(t, repo.Batch(func(tx storage.BatchTx) error {
			if err := tx.Put("a", []byte("1")); err != nil {
				return err
			}
			return tx.Put("b", []byte("2"))
		}))
		a, err := repo.Get("a")
		require.NoError(t, err)
		b, err := repo.Get("b")
		require.NoError(t, err)
		assert.Equal(t, "1", string(a))
		assert.Equal(t, "2", string(b))
	})

	t.Run("FailedBatchRollsBack", func(t *testing.T) {
		err := repo.Batch(func(tx storage.BatchTx) error {
			if err := tx.Put("a", []byte("changed")); err != nil {
				return err
			}
			if err := tx.Delete("b"); err != nil {
				return err
			}
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		a, err := repo.Get("a")
		require.NoError(t, err)
		assert.Equal(t, "1", string(a))
		_, err = repo.Get("b")
		require.NoError(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Batch(func(tx storage.BatchTx) error {
			if err := tx.Delete("a"); err != nil {
				return err
			}
			return tx.Delete("b")
		}))
		_, err := repo.Get("a")
		require.ErrorIs(t, err, storage.ErrNotFound)
		_, err = repo.Get("b")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		require.NoError(t, repo.Batch(func(tx storage.BatchTx) error {
			return tx.Delete("never-existed")
		}))
	})

	t.Run("ConcurrentBatches", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.Batch(func(tx storage.BatchTx) error {
					if err := tx.Put("x", []byte("same")); err != nil {
						return err
					}
					return tx.Put("y", []byte("same"))
				}))
			}()
		}
		wg.Wait()
		x, err := repo.Get("x")
		require.NoError(t, err)
		assert.Equal(t, "same", string(x))
	})
}
