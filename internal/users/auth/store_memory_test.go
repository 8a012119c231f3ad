// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/users/auth"
	"github.com/taibuivan/waitgate/pkg/pagination"
	"github.com/taibuivan/waitgate/pkg/slice"
)

/*
TestMemoryIdentityRepository_CopiesOnReadAndWrite keeps stored state isolated
from the caller's pointers.
*/
func TestMemoryIdentityRepository_CopiesOnReadAndWrite(t *testing.T) {
	repo := auth.NewMemoryIdentityRepository(nil)
	identity := &auth.Identity{ID: "id-1", Username: "a@example.com", Role: sec.RoleUser}
	require.NoError(t, repo.Create(context.Background(), identity))

	identity.Role = sec.RoleAdmin
	found, err := repo.FindByID(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, sec.RoleUser, found.Role)

	found.Username = "changed@example.com"
	again, err := repo.FindByUsername(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", again.Username)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestMemoryIdentityRepository_List sorts newest first and pages.
*/
func TestMemoryIdentityRepository_List(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := auth.NewMemoryIdentityRepository(clock)

	for i := range 5 {
		role := sec.RoleUser
		if i%2 == 0 {
			role = sec.RoleModerator
		}
		require.NoError(t, repo.Create(context.Background(), &auth.Identity{
			ID:        fmt.Sprintf("id-%d", i),
			Username:  fmt.Sprintf("user%d@example.com", i),
			Role:      role,
			CreatedAt: clock.Now().Add(time.Duration(i) * time.Minute),
		}))
	}

	ids := func(items []*auth.Identity) []string {
		return slice.Map(items, func(identity *auth.Identity) string { return identity.ID })
	}

	tests := []struct {
		name      string
		filter    auth.ListFilter
		wantIDs   []string
		wantTotal int
	}{
		{
			name:      "first page",
			filter:    auth.ListFilter{Params: pagination.Params{Page: 1, Limit: 2}},
			wantIDs:   []string{"id-4", "id-3"},
			wantTotal: 5,
		},
		{
			name:      "last partial page",
			filter:    auth.ListFilter{Params: pagination.Params{Page: 3, Limit: 2}},
			wantIDs:   []string{"id-0"},
			wantTotal: 5,
		},
		{
			name:      "past the end",
			filter:    auth.ListFilter{Params: pagination.Params{Page: 9, Limit: 2}},
			wantIDs:   []string{},
			wantTotal: 5,
		},
		{
			name:      "role filter",
			filter:    auth.ListFilter{Roles: []sec.UserRole{sec.RoleModerator}, Params: pagination.Params{Page: 1, Limit: 10}},
			wantIDs:   []string{"id-4", "id-2", "id-0"},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.List(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantIDs, ids(items))
		})
	}
}
