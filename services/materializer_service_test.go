package services

import (
	"context"
	"testing"

	"beyondrounds_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupIDForDeterministic(t *testing.T) {
	a := GroupIDFor(testEpoch, []string{"alice", "bob", "carol"})
	b := GroupIDFor(testEpoch, []string{"carol", "alice", "bob"})
	assert.Equal(t, a, b, "member order must not change the id")

	assert.NotEqual(t, a, GroupIDFor("2026-W36", []string{"alice", "bob", "carol"}))
	assert.NotEqual(t, a, GroupIDFor(testEpoch, []string{"alice", "bob"}))
}

func TestMatchIDForDeterministic(t *testing.T) {
	assert.Equal(t,
		MatchIDFor(testEpoch, "alice", "bob"),
		MatchIDFor(testEpoch, "bob", "alice"))
	assert.NotEqual(t,
		MatchIDFor(testEpoch, "alice", "bob"),
		MatchIDFor(testEpoch, "alice", "carol"))
}

func TestMaterializeGroupIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	groupID := GroupIDFor(testEpoch, []string{"alice", "bob", "carol"})

	created, err := env.materializer.MaterializeGroup(ctx, groupID, testEpoch, []string{"alice", "bob", "carol"}, "", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.materializer.MaterializeGroup(ctx, groupID, testEpoch, []string{"alice", "bob", "carol"}, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, env.db.count(models.GroupsTable))
	assert.Equal(t, 3, env.db.count(models.GroupMembershipsTable))
}

func TestMaterializeGroupWritesMemberships(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	groupID := GroupIDFor(testEpoch, []string{"alice", "bob"})

	created, err := env.materializer.MaterializeGroup(ctx, groupID, testEpoch, []string{"alice", "bob"}, "alice", "Friday Dinner")
	require.NoError(t, err)
	require.True(t, created)

	group, err := env.groups.GetGroup(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, "Friday Dinner", group.Group.Name)
	assert.Equal(t, testEpoch, group.Group.EpochID)
	assert.Equal(t, models.GroupStatusActive, group.Group.Status)
	assert.Equal(t, 2, group.Group.MemberCount)

	roles := map[string]string{}
	for _, m := range group.Members {
		roles[m.UserID] = m.Role
	}
	assert.Equal(t, models.RoleOwner, roles["alice"])
	assert.Equal(t, models.RoleMember, roles["bob"])
}

func TestMaterializeGroupRejectsBadSizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.materializer.MaterializeGroup(ctx, "g1", testEpoch, []string{"alice"}, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	five := []string{"a", "b", "c", "d", "e"}
	_, err = env.materializer.MaterializeGroup(ctx, "g2", testEpoch, five, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.materializer.MaterializeGroup(ctx, "g3", testEpoch, []string{"alice", "alice"}, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, env.db.count(models.GroupsTable))
}

func TestProposeMatchIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	match, created, err := env.materializer.ProposeMatch(ctx, testEpoch, "bob", "alice", 75)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice", match.User1ID, "parties are stored in lexicographic order")
	assert.Equal(t, "bob", match.User2ID)
	assert.Equal(t, models.MatchStatusPending, match.Status)

	_, created, err = env.materializer.ProposeMatch(ctx, testEpoch, "alice", "bob", 75)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, env.db.count(models.MatchesTable))
}
