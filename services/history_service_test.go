package services

import (
	"context"
	"testing"

	"beyondrounds_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshotGroupedPairs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedGroup(t, env.db, "g1", "2026-W34", "alice", "bob", "carol")

	snap, err := env.history.BuildSnapshot(ctx, testEpoch, []string{"alice", "bob", "carol", "dave"})
	require.NoError(t, err)

	assert.True(t, snap.GroupedEver("alice", "bob"))
	assert.True(t, snap.GroupedEver("bob", "carol"))
	assert.True(t, snap.GroupedEver("carol", "alice"))
	assert.False(t, snap.GroupedEver("alice", "dave"))

	// One epoch elapsed since W34.
	assert.True(t, snap.GroupedWithin("alice", "bob", 6))
	assert.True(t, snap.GroupedWithin("bob", "alice", 6))
	assert.False(t, snap.GroupedWithin("alice", "bob", 1))
}

func TestBuildSnapshotLowRatingCreatesAvoidPairs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedGroup(t, env.db, "g1", "2026-W30", "alice", "bob", "carol")
	env.db.seed(t, models.FeedbackTable, models.Feedback{
		GroupID:        "g1",
		UserID:         "alice",
		Rating:         2,
		WouldMeetAgain: models.MeetAgainYes,
	})

	snap, err := env.history.BuildSnapshot(ctx, testEpoch, []string{"alice", "bob", "carol"})
	require.NoError(t, err)

	// The rater avoids everyone from the group they rated poorly.
	assert.True(t, snap.Avoid("alice", "bob"))
	assert.True(t, snap.Avoid("carol", "alice"))
	// The other members keep matching with each other.
	assert.False(t, snap.Avoid("bob", "carol"))
}

func TestBuildSnapshotWouldNotMeetAgain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedGroup(t, env.db, "g1", "2026-W30", "alice", "bob")
	env.db.seed(t, models.FeedbackTable, models.Feedback{
		GroupID:        "g1",
		UserID:         "bob",
		Rating:         5,
		WouldMeetAgain: models.MeetAgainNo,
	})

	snap, err := env.history.BuildSnapshot(ctx, testEpoch, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.True(t, snap.Avoid("alice", "bob"))
}

func TestBuildSnapshotPositiveFeedbackNoAvoid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedGroup(t, env.db, "g1", "2026-W30", "alice", "bob")
	env.db.seed(t, models.FeedbackTable, models.Feedback{
		GroupID:        "g1",
		UserID:         "alice",
		Rating:         5,
		WouldMeetAgain: models.MeetAgainYes,
	})

	snap, err := env.history.BuildSnapshot(ctx, testEpoch, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.False(t, snap.Avoid("alice", "bob"))
	assert.True(t, snap.GroupedEver("alice", "bob"))
}

func TestBuildSnapshotKeepsLatestEpoch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedGroup(t, env.db, "g-old", "2026-W10", "alice", "bob")
	seedGroup(t, env.db, "g-new", "2026-W34", "alice", "bob")

	snap, err := env.history.BuildSnapshot(ctx, testEpoch, []string{"alice", "bob"})
	require.NoError(t, err)

	// The W34 grouping dominates: still inside a 6 epoch cooldown.
	assert.True(t, snap.GroupedWithin("alice", "bob", 6))
}

func TestBuildSnapshotMarksPendingMatchPairs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.db.seed(t, models.MatchesTable, models.Match{
		MatchID: "m1",
		EpochID: "2026-W34",
		User1ID: "alice",
		User2ID: "bob",
		Status:  models.MatchStatusPending,
	})
	env.db.seed(t, models.MatchesTable, models.Match{
		MatchID: "m2",
		EpochID: "2026-W34",
		User1ID: "carol",
		User2ID: "dave",
		Status:  models.MatchStatusRejected,
	})

	snap, err := env.history.BuildSnapshot(ctx, testEpoch, []string{"alice", "bob", "carol", "dave"})
	require.NoError(t, err)

	assert.True(t, snap.ActiveMatch("alice", "bob"))
	assert.True(t, snap.ActiveMatch("bob", "alice"))
	// Resolved matches release the pair.
	assert.False(t, snap.ActiveMatch("carol", "dave"))
	assert.False(t, snap.ActiveMatch("alice", "carol"))
}

func TestBuildSnapshotEmptyHistory(t *testing.T) {
	env := newTestEnv(t)
	snap, err := env.history.BuildSnapshot(context.Background(), testEpoch, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.False(t, snap.GroupedEver("alice", "bob"))
	assert.False(t, snap.Avoid("alice", "bob"))
	assert.False(t, snap.GroupedWithin("alice", "bob", 6))
	assert.False(t, snap.ActiveMatch("alice", "bob"))
}
