package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"beyondrounds_server/models"
	"beyondrounds_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MatchRunService drives one matching epoch end to end: eligibility,
// history snapshot, scoring, partitioning, materialization, notifications,
// match expiry and feedback solicitation. Runs for the same epoch are
// mutually exclusive via a conditional put on the MatchRuns row, and every
// write downstream is idempotent, so a run that dies partway is safely
// restartable.
type MatchRunService struct {
	Dynamo        *DynamoService
	Eligibility   *EligibilityService
	History       *MatchHistoryService
	Partitioner   *Partitioner
	Materializer  *MaterializerService
	Notifications *NotificationService
	Groups        *GroupService
	Log           *zap.Logger

	CooldownEpochs int
	// ProposeMatches switches size-2 cells from direct group creation to
	// pending Match proposals the pair must accept.
	ProposeMatches bool
	// TargetSize is the group size recruitment aims for when extending a
	// bare pair.
	TargetSize int

	// Rand drives recruitment selection; seedable for tests.
	Rand *rand.Rand
	Now  func() time.Time
}

func (s *MatchRunService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MatchRunService) rng() *rand.Rand {
	if s.Rand == nil {
		s.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s.Rand
}

// RunEpoch executes the batch for the given epoch. An empty epochID derives
// the current ISO week. Re-invoking a completed epoch returns the recorded
// summary without touching the store again.
func (s *MatchRunService) RunEpoch(ctx context.Context, epochID string) (*models.MatchRun, error) {
	if epochID == "" {
		epochID = utils.EpochID(s.now())
	}
	if _, _, err := utils.ParseEpochID(epochID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	run, err := s.acquireEpoch(ctx, epochID)
	if err != nil || run.Status == models.RunStatusCompleted {
		return run, err
	}

	summary, err := s.execute(ctx, epochID)
	if err != nil {
		s.failRun(ctx, epochID, err)
		return nil, err
	}

	if err := s.completeRun(ctx, epochID, summary); err != nil {
		return nil, err
	}
	return s.getRun(ctx, epochID)
}

// acquireEpoch takes the epoch lock. A completed run is returned as-is; a
// failed run is taken over; a running run is rejected.
func (s *MatchRunService) acquireEpoch(ctx context.Context, epochID string) (*models.MatchRun, error) {
	run := models.MatchRun{
		EpochID:   epochID,
		Status:    models.RunStatusRunning,
		StartedAt: s.now().UTC().Format(time.RFC3339),
	}
	err := s.Dynamo.PutItemIfNotExists(ctx, models.MatchRunsTable, run, "epochId")
	if err == nil {
		return &run, nil
	}
	if !errors.Is(err, ErrConditionFailed) {
		return nil, fmt.Errorf("failed to acquire epoch lock: %w", err)
	}

	existing, err := s.getRun(ctx, epochID)
	if err != nil {
		return nil, err
	}
	switch existing.Status {
	case models.RunStatusCompleted:
		s.Log.Info("epoch already completed, returning recorded summary", zap.String("epochId", epochID))
		return existing, nil
	case models.RunStatusFailed:
		// Take over a failed run; downstream writes are idempotent.
		_, err := s.Dynamo.UpdateItemWithCondition(ctx, models.MatchRunsTable,
			"SET #status = :running, startedAt = :startedAt REMOVE #error",
			"#status = :failed",
			map[string]types.AttributeValue{
				"epochId": &types.AttributeValueMemberS{Value: epochID},
			},
			map[string]types.AttributeValue{
				":running":   &types.AttributeValueMemberS{Value: models.RunStatusRunning},
				":failed":    &types.AttributeValueMemberS{Value: models.RunStatusFailed},
				":startedAt": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
			},
			map[string]string{"#status": "status", "#error": "error"},
		)
		if errors.Is(err, ErrConditionFailed) {
			return nil, ErrEpochInProgress
		}
		if err != nil {
			return nil, err
		}
		run.Status = models.RunStatusRunning
		return &run, nil
	default:
		return nil, ErrEpochInProgress
	}
}

type runSummary struct {
	groupsCreated   int
	matchesProposed int
	usersMatched    int
	usersDeferred   int
	matchesExpired  int
	notifyErrors    int
}

func (s *MatchRunService) execute(ctx context.Context, epochID string) (*runSummary, error) {
	summary := &runSummary{}

	// Sweep stale matches first so a pair whose proposal just expired is
	// free to be matched again this very epoch.
	expired, err := s.expireStaleMatches(ctx, epochID)
	if err != nil {
		return nil, err
	}
	summary.matchesExpired = expired

	pool, err := s.Eligibility.EligibleUsers(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.UserProfile, len(pool))
	ids := make([]string, 0, len(pool))
	for _, p := range pool {
		byID[p.UserID] = p
		ids = append(ids, p.UserID)
	}

	history, err := s.History.BuildSnapshot(ctx, epochID, ids)
	if err != nil {
		return nil, err
	}

	partition := s.Partitioner.BuildPartition(pool, history)
	if err := partition.Validate(s.Partitioner.MinSize, s.Partitioner.MaxSize); err != nil {
		// A broken partition is a bug; refuse to commit anything.
		return nil, fmt.Errorf("partition invariant violated, refusing to commit: %w", err)
	}

	leftover := append([]string(nil), partition.Leftover...)

	type cell struct {
		members []string
		score   float64
	}
	var direct []cell
	excluded := func(a, b string) bool {
		return history.Avoid(a, b) ||
			history.GroupedWithin(a, b, s.CooldownEpochs) ||
			history.ActiveMatch(a, b)
	}

	for _, g := range partition.Groups {
		if len(g.Members) == 2 && s.ProposeMatches {
			match, created, err := s.Materializer.ProposeMatch(ctx, epochID, g.Members[0], g.Members[1], g.Score)
			if err != nil {
				return nil, err
			}
			if created {
				summary.matchesProposed++
				summary.notifyErrors += s.Notifications.DispatchAll(ctx, []models.Notification{
					MatchedNotification(match.User1ID, *match),
					MatchedNotification(match.User2ID, *match),
				})
			}
			continue
		}

		members := g.Members
		if len(members) == 2 {
			recruits := s.recruit(members, leftover, excluded, s.TargetSize-len(members))
			for _, r := range recruits {
				leftover = remove(leftover, r)
			}
			members = append(append([]string(nil), members...), recruits...)
		}
		direct = append(direct, cell{members: members, score: g.Score})
	}

	// Groups are disjoint, so materialization can fan out. Each group is its
	// own transaction; a failure aborts the run but leaves committed groups
	// in place for the restart to skip over.
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range direct {
		c := c
		eg.Go(func() error {
			groupID := GroupIDFor(epochID, c.members)
			created, err := s.Materializer.MaterializeGroup(egCtx, groupID, epochID, c.members, "", "")
			if err != nil {
				return err
			}
			if !created {
				return nil
			}
			notifications := make([]models.Notification, 0, len(c.members))
			for _, userID := range c.members {
				notifications = append(notifications, GroupedNotification(userID, groupID, epochID, len(c.members)))
			}
			failed := s.Notifications.DispatchAll(egCtx, notifications)

			mu.Lock()
			summary.groupsCreated++
			summary.usersMatched += len(c.members)
			summary.notifyErrors += failed
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	summary.usersDeferred = len(leftover)

	summary.notifyErrors += s.solicitFeedback(ctx, epochID)

	s.Log.Info("epoch run finished",
		zap.String("epochId", epochID),
		zap.Int("groupsCreated", summary.groupsCreated),
		zap.Int("matchesProposed", summary.matchesProposed),
		zap.Int("usersMatched", summary.usersMatched),
		zap.Int("usersDeferred", summary.usersDeferred),
		zap.Int("matchesExpired", summary.matchesExpired),
		zap.Int("notifyErrors", summary.notifyErrors))
	return summary, nil
}

// recruit picks up to want leftover users compatible with every member,
// uniformly at random from the remaining pool. Zero candidates is fine; the
// group simply stays a pair.
func (s *MatchRunService) recruit(members, leftover []string, excluded func(a, b string) bool, want int) []string {
	if want <= 0 {
		return nil
	}
	var candidates []string
	for _, id := range leftover {
		ok := true
		for _, m := range members {
			if excluded(m, id) {
				ok = false
				break
			}
		}
		if ok {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	s.rng().Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if want > len(candidates) {
		want = len(candidates)
	}
	return candidates[:want]
}

// expireStaleMatches sweeps pending matches whose epoch fell out of the
// cooldown window.
func (s *MatchRunService) expireStaleMatches(ctx context.Context, epochID string) (int, error) {
	items, err := s.Dynamo.ScanAllItems(ctx, models.MatchesTable)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, item := range items {
		var match models.Match
		if err := attributevalue.UnmarshalMap(item, &match); err != nil {
			continue
		}
		if match.Status != models.MatchStatusPending {
			continue
		}
		elapsed, err := utils.EpochsBetween(match.EpochID, epochID)
		if err != nil || elapsed < s.CooldownEpochs {
			continue
		}
		_, err = s.Dynamo.UpdateItemWithCondition(ctx, models.MatchesTable,
			"SET #status = :expired, resolvedAt = :resolvedAt",
			"#status = :pending",
			map[string]types.AttributeValue{
				"matchId": &types.AttributeValueMemberS{Value: match.MatchID},
			},
			map[string]types.AttributeValue{
				":expired":    &types.AttributeValueMemberS{Value: models.MatchStatusExpired},
				":pending":    &types.AttributeValueMemberS{Value: models.MatchStatusPending},
				":resolvedAt": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
			},
			map[string]string{"#status": "status"},
		)
		if errors.Is(err, ErrConditionFailed) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// solicitFeedback nudges members of last epoch's groups who have not yet
// submitted feedback. Deterministic notification ids keep the nudge to one
// per (user, group) no matter how often the sweep runs.
func (s *MatchRunService) solicitFeedback(ctx context.Context, epochID string) int {
	prevEpoch, err := utils.PreviousEpochID(epochID)
	if err != nil {
		s.Log.Warn("cannot derive previous epoch, skipping feedback solicitation", zap.Error(err))
		return 0
	}
	groups, err := s.Groups.GroupsByEpoch(ctx, prevEpoch)
	if err != nil {
		s.Log.Warn("feedback solicitation skipped", zap.Error(err))
		return 0
	}

	failures := 0
	for _, group := range groups {
		memberIDs, err := s.Groups.MemberIDs(ctx, group.GroupID)
		if err != nil {
			s.Log.Warn("feedback solicitation: cannot load members",
				zap.String("groupId", group.GroupID), zap.Error(err))
			failures++
			continue
		}
		submitted, err := s.Groups.feedbackSubmitters(ctx, group.GroupID)
		if err != nil {
			s.Log.Warn("feedback solicitation: cannot load feedback",
				zap.String("groupId", group.GroupID), zap.Error(err))
			failures++
			continue
		}
		var due []models.Notification
		for _, userID := range memberIDs {
			if submitted[userID] {
				continue
			}
			due = append(due, FeedbackDueNotification(userID, group.GroupID, prevEpoch))
		}
		failures += s.Notifications.DispatchAll(ctx, due)
	}
	return failures
}

// GetRun returns the recorded summary for an epoch.
func (s *MatchRunService) GetRun(ctx context.Context, epochID string) (*models.MatchRun, error) {
	if _, _, err := utils.ParseEpochID(epochID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.getRun(ctx, epochID)
}

func (s *MatchRunService) getRun(ctx context.Context, epochID string) (*models.MatchRun, error) {
	item, err := s.Dynamo.GetItem(ctx, models.MatchRunsTable, map[string]types.AttributeValue{
		"epochId": &types.AttributeValueMemberS{Value: epochID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load run for epoch %s: %w", epochID, err)
	}
	var run models.MatchRun
	if err := attributevalue.UnmarshalMap(item, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run for epoch %s: %w", epochID, err)
	}
	return &run, nil
}

func (s *MatchRunService) completeRun(ctx context.Context, epochID string, summary *runSummary) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.MatchRunsTable,
		"SET #status = :status, completedAt = :completedAt, groupsCreated = :groups, matchesProposed = :proposed, usersMatched = :matched, usersDeferred = :deferred, matchesExpired = :expired, notifyErrors = :notifyErrors",
		map[string]types.AttributeValue{
			"epochId": &types.AttributeValueMemberS{Value: epochID},
		},
		map[string]types.AttributeValue{
			":status":       &types.AttributeValueMemberS{Value: models.RunStatusCompleted},
			":completedAt":  &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
			":groups":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", summary.groupsCreated)},
			":proposed":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", summary.matchesProposed)},
			":matched":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", summary.usersMatched)},
			":deferred":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", summary.usersDeferred)},
			":expired":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", summary.matchesExpired)},
			":notifyErrors": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", summary.notifyErrors)},
		},
		map[string]string{"#status": "status"},
	)
	if err != nil {
		return fmt.Errorf("failed to record run summary: %w", err)
	}
	return nil
}

func (s *MatchRunService) failRun(ctx context.Context, epochID string, cause error) {
	_, err := s.Dynamo.UpdateItem(ctx, models.MatchRunsTable,
		"SET #status = :status, #error = :error",
		map[string]types.AttributeValue{
			"epochId": &types.AttributeValueMemberS{Value: epochID},
		},
		map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: models.RunStatusFailed},
			":error":  &types.AttributeValueMemberS{Value: cause.Error()},
		},
		map[string]string{"#status": "status", "#error": "error"},
	)
	if err != nil {
		s.Log.Error("failed to mark run as failed", zap.String("epochId", epochID), zap.Error(err))
	}
}

func remove(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
