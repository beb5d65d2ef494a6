package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otp-relay/internal/audit/domain"
	"otp-relay/internal/db/dbtest"
)

func TestPostgresRepository_CreateGetList(t *testing.T) {
	repo := NewPostgresRepository(dbtest.New(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	entries := []*domain.AuditLog{
		{ID: "a1", ProjectID: "p1", Actor: "U1", Action: domain.ActionLink, Resource: domain.ResourceResponder, IP: "chat", Metadata: `{"platform":"slack"}`, CreatedAt: base},
		{ID: "a2", ProjectID: "p1", Action: "create", Resource: domain.ResourceOTPRequest, IP: "10.0.0.1", CreatedAt: base.Add(time.Minute)},
		{ID: "a3", ProjectID: "p2", Action: "get", Resource: domain.ResourceOTPRequest, IP: "10.0.0.2", CreatedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
	}

	got, err := repo.GetByID(ctx, "a2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Actor)
	assert.Empty(t, got.Metadata)

	list, err := repo.ListByProject(ctx, "p1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].ID, "newest first")
	assert.Equal(t, "U1", list[1].Actor)

	page, err := repo.ListByProject(ctx, "p1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a1", page[0].ID)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
