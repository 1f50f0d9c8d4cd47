package impl

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"ordinem/internal/domain/entity"
	domainerrors "ordinem/internal/domain/errors"
	"ordinem/internal/domain/repository"
	"ordinem/internal/errors"
	"ordinem/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

type feedService struct {
	linkRepo  repository.DeviceLinkRepository
	notifRepo repository.NotificationRepository
	logger    *slog.Logger
}

// FeedServiceParams holds dependencies for FeedService, injected by Fx.
type FeedServiceParams struct {
	fx.In

	LinkRepo  repository.DeviceLinkRepository
	NotifRepo repository.NotificationRepository
	Logger    *slog.Logger
}

// NewFeedService creates a new notification feed service instance
func NewFeedService(params FeedServiceParams) usecase.FeedUsecase {
	return &feedService{
		linkRepo:  params.LinkRepo,
		notifRepo: params.NotifRepo,
		logger:    params.Logger,
	}
}

// Subscribe attaches a live aggregation over the user's linked devices.
func (s *feedService) Subscribe(ctx context.Context, userID uuid.UUID, onUpdate func(feed []*entity.Notification)) (usecase.FeedSubscription, error) {
	if userID == uuid.Nil {
		return nil, domainerrors.ErrNotAuthenticated
	}

	sub := &feedSubscription{
		svc:        s,
		ctx:        ctx,
		onUpdate:   onUpdate,
		deviceSubs: make(map[string]repository.Subscription),
	}

	linkSub, err := s.linkRepo.WatchDeviceIDs(ctx, userID, sub.handleDeviceSet)
	if err != nil {
		// A live subscription has no synchronous caller to receive this
		// later, so a registration failure degrades to an empty feed.
		s.logger.Error("device-set listener registration failed",
			slog.String("user_id", userID.String()),
			slog.Any("error", err),
		)
		sub.deliver([]*entity.Notification{})

		return sub, nil
	}
	sub.linkSub = linkSub

	return sub, nil
}

// Feed performs one aggregation pass over the user's currently linked
// devices.
func (s *feedService) Feed(ctx context.Context, userID uuid.UUID) ([]*entity.Notification, error) {
	if userID == uuid.Nil {
		return nil, domainerrors.ErrNotAuthenticated
	}

	deviceIDs, err := s.linkRepo.ListDeviceIDs(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list device links")
	}

	return s.aggregate(ctx, deviceIDs), nil
}

// MarkAsRead materializes the feed once and patches read=1 on the addressed
// record if it is present. An absent target is a no-op; a failed write
// propagates.
func (s *feedService) MarkAsRead(ctx context.Context, userID uuid.UUID, deviceID, notificationID string) error {
	feed, err := s.Feed(ctx, userID)
	if err != nil {
		return err
	}
	if !feedContains(feed, deviceID, notificationID) {
		return nil
	}

	if err := s.notifRepo.MarkRead(ctx, deviceID, notificationID); err != nil {
		return domainerrors.ErrWriteFailed.WrapMessage(fmt.Sprintf("mark read %s/%s", deviceID, notificationID))
	}

	return nil
}

// DeleteNotification materializes the feed once and removes the addressed
// record if it is present.
func (s *feedService) DeleteNotification(ctx context.Context, userID uuid.UUID, deviceID, notificationID string) error {
	feed, err := s.Feed(ctx, userID)
	if err != nil {
		return err
	}
	if !feedContains(feed, deviceID, notificationID) {
		return nil
	}

	if err := s.notifRepo.Delete(ctx, deviceID, notificationID); err != nil {
		return domainerrors.ErrWriteFailed.WrapMessage(fmt.Sprintf("delete %s/%s", deviceID, notificationID))
	}

	return nil
}

// MarkAllAsRead materializes the feed once and marks every unread entry.
func (s *feedService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	feed, err := s.Feed(ctx, userID)
	if err != nil {
		return err
	}

	return s.applyAll(ctx, unreadOf(feed), s.notifRepo.MarkRead)
}

// DeleteAll materializes the feed once and deletes every entry.
func (s *feedService) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	feed, err := s.Feed(ctx, userID)
	if err != nil {
		return err
	}

	return s.applyAll(ctx, feed, s.notifRepo.Delete)
}

// aggregate reads the complete notification collection of every given device
// and derives the feed: flattened, deduplicated on (deviceID, id), read flag
// normalized, sorted by createdAt descending. A device whose collection
// cannot be read is logged and skipped so the feed always reflects the
// current readable state.
func (s *feedService) aggregate(ctx context.Context, deviceIDs []string) []*entity.Notification {
	feed := make([]*entity.Notification, 0)
	seen := make(map[entity.NotificationKey]struct{})

	for _, deviceID := range deviceIDs {
		notifications, err := s.notifRepo.ListByDevice(ctx, deviceID)
		if err != nil {
			s.logger.Warn("device notifications unreachable, skipping",
				slog.String("device_id", deviceID),
				slog.Any("error", err),
			)

			continue
		}

		for _, n := range notifications {
			if _, dup := seen[n.Key()]; dup {
				continue
			}
			seen[n.Key()] = struct{}{}
			feed = append(feed, n)
		}
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})

	return feed
}

// applyAll issues op for every item concurrently and waits for all of them.
// Any individual failure fails the whole batch, reporting which items
// failed; the next re-aggregation reflects exactly the writes that
// succeeded, which is the correct recovery point.
func (s *feedService) applyAll(ctx context.Context, items []*entity.Notification, op func(ctx context.Context, deviceID, notificationID string) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, item := range items {
		wg.Add(1)
		go func(deviceID, id string) {
			defer wg.Done()
			if err := op(ctx, deviceID, id); err != nil {
				mu.Lock()
				errs = append(errs, errors.Wrapf(err, "notification %s/%s", deviceID, id))
				mu.Unlock()
			}
		}(item.DeviceID, item.ID)
	}
	wg.Wait()

	if len(errs) > 0 {
		return domainerrors.ErrWriteFailed.WrapMessage(errors.Join(errs...).Error())
	}

	return nil
}

func feedContains(feed []*entity.Notification, deviceID, notificationID string) bool {
	for _, n := range feed {
		if n.DeviceID == deviceID && n.ID == notificationID {
			return true
		}
	}

	return false
}

func unreadOf(feed []*entity.Notification) []*entity.Notification {
	unread := make([]*entity.Notification, 0, len(feed))
	for _, n := range feed {
		if !n.Read {
			unread = append(unread, n)
		}
	}

	return unread
}

// feedSubscription is the live handle returned by Subscribe. It owns the
// device-set listener plus one notification listener per linked device, held
// in an explicit deviceID -> subscription map that is reconciled on every
// device-set change.
type feedSubscription struct {
	svc      *feedService
	ctx      context.Context
	onUpdate func(feed []*entity.Notification)
	linkSub  repository.Subscription

	// mu guards deviceSubs, feed and closed. deliverMu serializes onUpdate
	// with Close so no callback can be in flight once Close returns.
	mu         sync.Mutex
	deliverMu  sync.Mutex
	deviceSubs map[string]repository.Subscription
	feed       []*entity.Notification
	closed     bool
}

// handleDeviceSet reconciles the per-device listener map against the new
// link set. Removed handles are detached before new ones attach, so a
// removed device's late-arriving event cannot resurrect it in the feed.
func (f *feedSubscription) handleDeviceSet(deviceIDs []string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()

		return
	}

	want := make(map[string]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		want[id] = struct{}{}
	}

	for id, sub := range f.deviceSubs {
		if _, keep := want[id]; keep {
			continue
		}
		if err := sub.Close(); err != nil {
			f.svc.logger.Warn("device listener teardown failed",
				slog.String("device_id", id),
				slog.Any("error", err),
			)
		}
		delete(f.deviceSubs, id)
	}

	for id := range want {
		if _, attached := f.deviceSubs[id]; attached {
			continue
		}
		sub, err := f.svc.notifRepo.Watch(f.ctx, id, f.refresh)
		if err != nil {
			f.svc.logger.Error("device listener registration failed",
				slog.String("device_id", id),
				slog.Any("error", err),
			)

			continue
		}
		f.deviceSubs[id] = sub
	}
	f.mu.Unlock()

	f.refresh()
}

// refresh re-derives the entire feed from the current full state of every
// watched device. There is no incremental path: every change anywhere
// re-reads everything, trading efficiency for a feed that never shows a
// stale merge.
func (f *feedSubscription) refresh() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()

		return
	}
	deviceIDs := make([]string, 0, len(f.deviceSubs))
	for id := range f.deviceSubs {
		deviceIDs = append(deviceIDs, id)
	}
	f.mu.Unlock()

	sort.Strings(deviceIDs)
	feed := f.svc.aggregate(f.ctx, deviceIDs)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()

		return
	}
	f.feed = feed
	f.mu.Unlock()

	f.deliver(feed)
}

// deliver hands the feed to the subscriber unless the subscription closed
// in the meantime. deliverMu is held across the callback so Close can wait
// out an in-flight delivery.
func (f *feedSubscription) deliver(feed []*entity.Notification) {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}

	f.onUpdate(feed)
}

// Current returns the most recently materialized feed.
func (f *feedSubscription) Current() []*entity.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := make([]*entity.Notification, len(f.feed))
	copy(current, f.feed)

	return current
}

// MarkAsRead resolves the target against the currently materialized feed
// (never re-derived) and patches the owning device's record.
func (f *feedSubscription) MarkAsRead(ctx context.Context, deviceID, notificationID string) error {
	if !f.contains(deviceID, notificationID) {
		return nil
	}

	if err := f.svc.notifRepo.MarkRead(ctx, deviceID, notificationID); err != nil {
		return domainerrors.ErrWriteFailed.WrapMessage(fmt.Sprintf("mark read %s/%s", deviceID, notificationID))
	}

	return nil
}

// DeleteNotification resolves the target against the currently materialized
// feed and removes the owning device's record.
func (f *feedSubscription) DeleteNotification(ctx context.Context, deviceID, notificationID string) error {
	if !f.contains(deviceID, notificationID) {
		return nil
	}

	if err := f.svc.notifRepo.Delete(ctx, deviceID, notificationID); err != nil {
		return domainerrors.ErrWriteFailed.WrapMessage(fmt.Sprintf("delete %s/%s", deviceID, notificationID))
	}

	return nil
}

// MarkAllAsRead marks every currently-unread notification in the
// materialized feed.
func (f *feedSubscription) MarkAllAsRead(ctx context.Context) error {
	return f.svc.applyAll(ctx, unreadOf(f.Current()), f.svc.notifRepo.MarkRead)
}

// DeleteAll removes every notification in the materialized feed.
func (f *feedSubscription) DeleteAll(ctx context.Context) error {
	return f.svc.applyAll(ctx, f.Current(), f.svc.notifRepo.Delete)
}

// Close tears down the device-set listener and every per-device listener.
// Idempotent; once it returns, onUpdate will not be invoked again.
func (f *feedSubscription) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()

		return nil
	}
	f.closed = true
	linkSub := f.linkSub
	subs := f.deviceSubs
	f.deviceSubs = make(map[string]repository.Subscription)
	f.mu.Unlock()

	// Wait out any delivery already past the closed check.
	f.deliverMu.Lock()
	//nolint:staticcheck // empty critical section: used as a barrier only.
	f.deliverMu.Unlock()

	var errs []error
	if linkSub != nil {
		if err := linkSub.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "device-set listener"))
		}
	}
	for id, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "device listener %s", id))
		}
	}

	return errors.Join(errs...)
}

func (f *feedSubscription) contains(deviceID, notificationID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return feedContains(f.feed, deviceID, notificationID)
}
