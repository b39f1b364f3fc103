package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/layer-3/nocode/adapters/store/sqlite"
	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/service"
)

func newSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestDeploymentService_Record(t *testing.T) {
	ctx := context.Background()
	svc := service.NewDeploymentService(newSQLiteStore(t))

	t.Run("fills defaults", func(t *testing.T) {
		d, err := svc.Record(ctx, service.RecordInput{
			ContractAddress: "0xC0ffee0000000000000000000000000000000001",
			TxHash:          "0xabc",
			Chain:           "Anvil",
			ABI:             json.RawMessage(`[{"type":"constructor"}]`),
			ContractType:    "whatever",
		})
		require.NoError(t, err)
		require.NotEmpty(t, d.ID)
		require.Equal(t, "nocode", d.ProjectID)
		require.Equal(t, "unknown", d.UserID)
		require.Equal(t, "auto", d.BuildID)
		require.Equal(t, "anvil", d.Chain)
		require.Equal(t, "erc20", d.ContractType)
		require.Equal(t, "deployed", d.Status)
		require.False(t, d.CreatedAt.IsZero())
	})

	t.Run("lowercases the user", func(t *testing.T) {
		d, err := svc.Record(ctx, service.RecordInput{
			ContractAddress: "0xC0ffee0000000000000000000000000000000002",
			Chain:           "anvil",
			UserID:          "0xABCDEF0000000000000000000000000000000001",
			ProjectID:       "p1",
			BuildID:         "b1",
			ABI:             json.RawMessage(`[]`),
		})
		require.NoError(t, err)
		require.Equal(t, "0xabcdef0000000000000000000000000000000001", d.UserID)
		require.Equal(t, "p1", d.ProjectID)
		require.Equal(t, "b1", d.BuildID)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := svc.Record(ctx, service.RecordInput{ContractAddress: "nope", Chain: "anvil", ABI: json.RawMessage(`[]`)})
		require.ErrorIs(t, err, core.ErrInvalidAddress)

		_, err = svc.Record(ctx, service.RecordInput{ContractAddress: "0xC0ffee0000000000000000000000000000000003", ABI: json.RawMessage(`[]`)})
		require.ErrorIs(t, err, core.ErrInvalidDeployment)

		_, err = svc.Record(ctx, service.RecordInput{ContractAddress: "0xC0ffee0000000000000000000000000000000003", Chain: "anvil", ABI: json.RawMessage(`{}`)})
		require.ErrorIs(t, err, core.ErrInvalidDeployment)

		_, err = svc.Record(ctx, service.RecordInput{ContractAddress: "0xC0ffee0000000000000000000000000000000003", Chain: "anvil"})
		require.ErrorIs(t, err, core.ErrInvalidDeployment)
	})
}

func TestDeploymentService_Lookups(t *testing.T) {
	ctx := context.Background()
	svc := service.NewDeploymentService(newSQLiteStore(t))
	user := "0xABCDEF0000000000000000000000000000000009"

	for _, in := range []service.RecordInput{
		{ContractAddress: "0xC0ffee0000000000000000000000000000000011", Chain: "anvil", UserID: user, ABI: json.RawMessage(`[]`)},
		{ContractAddress: "0xC0ffee0000000000000000000000000000000012", Chain: "sepolia", UserID: user, ABI: json.RawMessage(`[]`)},
	} {
		_, err := svc.Record(ctx, in)
		require.NoError(t, err)
	}

	anvil, err := svc.ListByUser(ctx, user, "ANVIL")
	require.NoError(t, err)
	require.Len(t, anvil, 1)
	require.Equal(t, "anvil", anvil[0].Chain)

	all, err := svc.ListByUser(ctx, user, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	d, err := svc.GetByContract(ctx, "0xc0ffee0000000000000000000000000000000012")
	require.NoError(t, err)
	require.Equal(t, "sepolia", d.Chain)

	_, err = svc.GetByContract(ctx, "0xc0ffee00000000000000000000000000000000ff")
	require.ErrorIs(t, err, core.ErrDeploymentNotFound)
}
