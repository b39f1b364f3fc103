package sqlite

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/nocode/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newUser(address string) *core.User {
	return &core.User{
		ID:          uuid.NewString(),
		SiweAddress: address,
		CreatedAt:   time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		s := newTestStore(t)
		u := newUser("0xabc0000000000000000000000000000000000001")
		require.NoError(t, s.Create(ctx, u))
		require.Equal(t, core.DefaultPlan, u.Plan)

		byAddr, err := s.FindByAddress(ctx, u.SiweAddress)
		require.NoError(t, err)
		require.Equal(t, u.ID, byAddr.ID)
		require.Equal(t, core.DefaultPlan, byAddr.Plan)
		require.Equal(t, u.CreatedAt, byAddr.CreatedAt)
		require.Nil(t, byAddr.LastLogin)
		require.Empty(t, byAddr.Email)

		byID, err := s.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, byAddr, byID)
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestStore(t)

		_, err := s.FindByAddress(ctx, "0xnobody")
		require.ErrorIs(t, err, core.ErrUserNotFound)

		_, err = s.FindByID(ctx, "missing")
		require.ErrorIs(t, err, core.ErrUserNotFound)

		err = s.TouchLastLogin(ctx, "missing", time.Now())
		require.ErrorIs(t, err, core.ErrUserNotFound)
	})

	t.Run("duplicate address", func(t *testing.T) {
		s := newTestStore(t)
		addr := "0xabc0000000000000000000000000000000000002"
		require.NoError(t, s.Create(ctx, newUser(addr)))

		err := s.Create(ctx, newUser(addr))
		require.ErrorIs(t, err, core.ErrUserExists)
	})

	t.Run("users without address do not collide", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Create(ctx, newUser("")))
		require.NoError(t, s.Create(ctx, newUser("")))
	})

	t.Run("touch last login", func(t *testing.T) {
		s := newTestStore(t)
		u := newUser("0xabc0000000000000000000000000000000000003")
		require.NoError(t, s.Create(ctx, u))

		at := time.UnixMilli(1_700_000_123_000).UTC()
		require.NoError(t, s.TouchLastLogin(ctx, u.ID, at))

		got, err := s.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		require.Equal(t, at, *got.LastLogin)
	})

	t.Run("concurrent creates keep one row", func(t *testing.T) {
		s := newTestStore(t)
		addr := "0xabc0000000000000000000000000000000000004"

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Create(ctx, newUser(addr)); err == nil {
					mu.Lock()
					created++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, created)
	})
}

func TestDeployments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := "0xabc0000000000000000000000000000000000005"
	base := time.UnixMilli(1_700_000_000_000).UTC()

	records := []*core.Deployment{
		{ID: "d1", ProjectID: "nocode", UserID: user, BuildID: "auto", Chain: "anvil",
			TxHash: "0x01", ContractAddress: "0xC0FFEE0000000000000000000000000000000001",
			ABI: json.RawMessage(`[{"type":"function"}]`), ContractType: "erc20", Status: "deployed",
			CreatedAt: base},
		{ID: "d2", ProjectID: "nocode", UserID: user, BuildID: "auto", Chain: "sepolia",
			ContractType: "erc20", Status: "deployed", CreatedAt: base.Add(time.Minute)},
		{ID: "d3", ProjectID: "nocode", UserID: "someone-else", BuildID: "auto", Chain: "anvil",
			ContractType: "erc20", Status: "deployed", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, d := range records {
		require.NoError(t, s.CreateDeployment(ctx, d))
	}

	all, err := s.ListDeploymentsByUser(ctx, user, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "d1", all[0].ID)
	require.Equal(t, "d2", all[1].ID)
	require.JSONEq(t, `[{"type":"function"}]`, string(all[0].ABI))
	require.JSONEq(t, `[]`, string(all[1].ABI))
	require.Empty(t, all[1].TxHash)

	anvil, err := s.ListDeploymentsByUser(ctx, user, "anvil")
	require.NoError(t, err)
	require.Len(t, anvil, 1)

	none, err := s.ListDeploymentsByUser(ctx, "nobody", "")
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)

	found, err := s.FindDeploymentByContract(ctx, "0xc0ffee0000000000000000000000000000000001")
	require.NoError(t, err)
	require.Equal(t, "d1", found.ID)
	require.Equal(t, base, found.CreatedAt)

	_, err = s.FindDeploymentByContract(ctx, "0xdead")
	require.ErrorIs(t, err, core.ErrDeploymentNotFound)
}

func TestTemplates(t *testing.T) {
	ctx := context.Background()

	t.Run("seeded catalogue", func(t *testing.T) {
		s := newTestStore(t)

		templates, err := s.ListTemplates(ctx)
		require.NoError(t, err)
		require.Len(t, templates, 2)

		require.Equal(t, "erc20", templates[0].ID)
		require.Equal(t, "ERC20 Token", templates[0].Name)
		require.Equal(t, "token", templates[0].Category)
		require.True(t, templates[0].Audited)
		require.True(t, json.Valid(templates[0].Schema))
		require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), templates[0].CreatedAt)

		require.Equal(t, "hello_storage", templates[1].ID)
		require.False(t, templates[1].Audited)
	})

	t.Run("create", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, s.CreateTemplate(ctx, &core.Template{
			ID:        "nft",
			Name:      "Basic NFT",
			Category:  "nft",
			Version:   "0.1.0",
			CreatedAt: time.UnixMilli(1_700_000_000_000),
		}))

		templates, err := s.ListTemplates(ctx)
		require.NoError(t, err)
		require.Len(t, templates, 3)
		require.Equal(t, "Basic NFT", templates[0].Name)
		require.JSONEq(t, `{}`, string(templates[0].Schema))

		err = s.CreateTemplate(ctx, &core.Template{ID: "nft2", Name: "Basic NFT", Category: "nft", Version: "0.1.0"})
		require.Error(t, err)
		require.True(t, isUniqueViolation(err))
	})
}
