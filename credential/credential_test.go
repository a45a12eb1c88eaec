package credential

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfdesk/shelfadmin/internal/apitest"
	"github.com/shelfdesk/shelfadmin/storage"
	"github.com/shelfdesk/shelfadmin/storage/memory"
)

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(memory.NewRepository())
	profile := Profile{"id": json.Number("7"), "name": "Alice"}

	require.NoError(t, s.Save("abc.def.ghi", profile))

	token, got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)
	assert.Equal(t, profile, got)
}

func TestStoreLayout(t *testing.T) {
	repo := memory.NewRepository()
	s := NewStore(repo)
	require.NoError(t, s.Save("tok", Profile{"id": json.Number("7"), "name": "Alice"}))

	raw, err := repo.Get(TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(raw))

	user, err := repo.Get(UserKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"name":"Alice"}`, string(user))
}

func TestStoreSaveRejectsEmptyToken(t *testing.T) {
	repo := memory.NewRepository()
	s := NewStore(repo)
	err := s.Save("", Profile{"id": "1"})
	require.ErrorIs(t, err, ErrEmptyToken)
	assert.Equal(t, 0, repo.Len())
}

func TestStoreSaveNilProfile(t *testing.T) {
	s := NewStore(memory.NewRepository())
	require.NoError(t, s.Save("tok", nil))
	token, profile, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, Profile{}, profile)
}

func TestStoreLoadEmpty(t *testing.T) {
	s := NewStore(memory.NewRepository())
	token, profile, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, profile)
}

func putRaw(t *testing.T, repo storage.Repository, kv map[string]string) {
	t.Helper()
	require.NoError(t, repo.Batch(func(tx storage.BatchTx) error {
		for k, v := range kv {
			if err := tx.Put(k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestStoreLoadProfileWithoutToken(t *testing.T) {
	repo := memory.NewRepository()
	putRaw(t, repo, map[string]string{UserKey: `{"id":1}`})
	token, profile, err := NewStore(repo).Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, profile)
}

func TestStoreLoadCorruptProfile(t *testing.T) {
	for name, raw := range map[string]string{
		"truncated": `{"id":`,
		"array":     `[1,2]`,
		"trailing":  `{"id":1} {"id":2}`,
		"garbage":   `not json`,
	} {
		t.Run(name, func(t *testing.T) {
			repo := memory.NewRepository()
			putRaw(t, repo, map[string]string{TokenKey: "tok", UserKey: raw})
			token, profile, err := NewStore(repo).Load()
			require.ErrorIs(t, err, ErrCorruptProfile)
			assert.Equal(t, "tok", token)
			assert.Nil(t, profile)
		})
	}
}

func TestStoreLoadNullProfile(t *testing.T) {
	repo := memory.NewRepository()
	putRaw(t, repo, map[string]string{TokenKey: "tok", UserKey: " null\n"})
	token, profile, err := NewStore(repo).Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Nil(t, profile)
}

func TestStoreClear(t *testing.T) {
	t.Run("Both", func(t *testing.T) {
		repo := memory.NewRepository()
		s := NewStore(repo)
		require.NoError(t, s.Save("tok", Profile{"id": "1"}))
		require.NoError(t, s.Clear())
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("OnlyToken", func(t *testing.T) {
		repo := memory.NewRepository()
		putRaw(t, repo, map[string]string{TokenKey: "tok"})
		require.NoError(t, NewStore(repo).Clear())
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("OnlyProfile", func(t *testing.T) {
		repo := memory.NewRepository()
		putRaw(t, repo, map[string]string{UserKey: "{"})
		require.NoError(t, NewStore(repo).Clear())
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("Empty", func(t *testing.T) {
		repo := memory.NewRepository()
		s := NewStore(repo)
		require.NoError(t, s.Clear())
		require.NoError(t, s.Clear())
		assert.Equal(t, 0, repo.Len())
	})
}

type failingRepo struct{ err error }

func (f failingRepo) Get(string) ([]byte, error)                  { return nil, f.err }
func (f failingRepo) Batch(func(tx storage.BatchTx) error) error { return f.err }

func TestStoreSurfacesIOErrors(t *testing.T) {
	ioErr := errors.New("disk on fire")
	s := NewStore(failingRepo{err: ioErr})

	_, err := s.Token()
	require.ErrorIs(t, err, ioErr)
	_, _, err = s.Load()
	require.ErrorIs(t, err, ioErr)
	require.ErrorIs(t, s.Clear(), ioErr)
}

func TestProfileHelpers(t *testing.T) {
	p, err := ParseProfile([]byte(`{"id":12345678901234567890,"email":"a@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890", p.ID())
	assert.Equal(t, "a@example.com", p.DisplayName())

	assert.Equal(t, "", Profile{}.ID())
	assert.Equal(t, "u1", Profile{"id": "u1"}.ID())
	assert.Equal(t, "Alice", Profile{"id": "u1", "name": "Alice"}.DisplayName())
}

func TestInspectorExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := NewInspectorWithClock(func() time.Time { return now })

	t.Run("Future", func(t *testing.T) {
		tok := apitest.MintToken(t, now.Add(time.Hour), nil)
		assert.False(t, in.IsExpired(tok))
		exp, err := in.ExpiresAt(tok)
		require.NoError(t, err)
		assert.True(t, exp.Equal(now.Add(time.Hour)))
	})

	t.Run("Past", func(t *testing.T) {
		for _, d := range []time.Duration{time.Second, time.Minute, 24 * time.Hour, 365 * 24 * time.Hour} {
			tok := apitest.MintToken(t, now.Add(-d), nil)
			assert.True(t, in.IsExpired(tok), "expired by %s", d)
		}
	})

	t.Run("NoExpiry", func(t *testing.T) {
		tok := apitest.MintToken(t, time.Time{}, map[string]any{"sub": "7"})
		assert.False(t, in.IsExpired(tok))
		exp, err := in.ExpiresAt(tok)
		require.NoError(t, err)
		assert.True(t, exp.IsZero())
	})
}

func TestInspectorMalformed(t *testing.T) {
	in := NewInspector()
	for _, s := range []string{
		"",
		"abc.def.ghi",
		"not-a-token",
		"a.b",
		"...",
		"a.b.c.d",
		`{"exp":9999999999}`,
		"eyJhbGciOiJIUzI1NiJ9.%%%.sig",
		"eyJhbGciOiJIUzI1NiJ9.eyJleHAiOiJzb29uIn0.sig",
		"\x00\xff\xfe",
	} {
		assert.NotPanics(t, func() {
			assert.True(t, in.IsExpired(s), "%q should count as expired", s)
		})
	}
	assert.True(t, IsExpired("abc.def.ghi"))
}
