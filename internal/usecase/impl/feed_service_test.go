package impl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ordinem/internal/domain/entity"
	domainerrors "ordinem/internal/domain/errors"
	"ordinem/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSub is a closable subscription handle.
type fakeSub struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	return nil
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// fakeNotifRepo is an in-memory NotificationRepository with manual change
// propagation: tests mutate state, then call fire to run the watchers the
// way a backend change event would.
type fakeNotifRepo struct {
	mu     sync.Mutex
	store  map[string]map[string]*entity.Notification
	nextID int

	listErr  map[string]error
	markErr  map[entity.NotificationKey]error
	delErr   map[entity.NotificationKey]error
	watchErr map[string]error

	watchers map[string][]watcher

	markCalls []entity.NotificationKey
	delCalls  []entity.NotificationKey
}

type watcher struct {
	sub      *fakeSub
	onChange func()
}

func newFakeNotifRepo() *fakeNotifRepo {
	return &fakeNotifRepo{
		store:    make(map[string]map[string]*entity.Notification),
		listErr:  make(map[string]error),
		markErr:  make(map[entity.NotificationKey]error),
		delErr:   make(map[entity.NotificationKey]error),
		watchErr: make(map[string]error),
		watchers: make(map[string][]watcher),
	}
}

func (r *fakeNotifRepo) put(deviceID string, n *entity.Notification) *entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store[deviceID] == nil {
		r.store[deviceID] = make(map[string]*entity.Notification)
	}
	stored := *n
	stored.DeviceID = deviceID
	r.store[deviceID][stored.ID] = &stored

	return &stored
}

func (r *fakeNotifRepo) ListByDevice(_ context.Context, deviceID string) ([]*entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.listErr[deviceID]; err != nil {
		return nil, err
	}
	notifications := make([]*entity.Notification, 0, len(r.store[deviceID]))
	for _, n := range r.store[deviceID] {
		copied := *n
		notifications = append(notifications, &copied)
	}

	return notifications, nil
}

func (r *fakeNotifRepo) Create(_ context.Context, deviceID string, n *entity.Notification) (string, error) {
	r.mu.Lock()
	r.nextID++
	id := fmt.Sprintf("n%d", r.nextID)
	r.mu.Unlock()

	stored := *n
	stored.ID = id
	r.put(deviceID, &stored)

	return id, nil
}

func (r *fakeNotifRepo) MarkRead(_ context.Context, deviceID, id string) error {
	key := entity.NotificationKey{DeviceID: deviceID, ID: id}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls = append(r.markCalls, key)
	if err := r.markErr[key]; err != nil {
		return err
	}
	if n, ok := r.store[deviceID][id]; ok {
		n.Read = true
	}

	return nil
}

func (r *fakeNotifRepo) Delete(_ context.Context, deviceID, id string) error {
	key := entity.NotificationKey{DeviceID: deviceID, ID: id}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delCalls = append(r.delCalls, key)
	if err := r.delErr[key]; err != nil {
		return err
	}
	delete(r.store[deviceID], id)

	return nil
}

func (r *fakeNotifRepo) Watch(_ context.Context, deviceID string, onChange func()) (repository.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.watchErr[deviceID]; err != nil {
		return nil, err
	}
	sub := &fakeSub{}
	r.watchers[deviceID] = append(r.watchers[deviceID], watcher{sub: sub, onChange: onChange})

	return sub, nil
}

// fire runs every live watcher for a device, simulating a change event.
func (r *fakeNotifRepo) fire(deviceID string) {
	r.mu.Lock()
	watchers := append([]watcher(nil), r.watchers[deviceID]...)
	r.mu.Unlock()

	for _, w := range watchers {
		if !w.sub.isClosed() {
			w.onChange()
		}
	}
}

func (r *fakeNotifRepo) liveWatcherCount(deviceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, w := range r.watchers[deviceID] {
		if !w.sub.isClosed() {
			count++
		}
	}

	return count
}

// feedHarness wires a feedService to watchable fakes.
type feedHarness struct {
	links  *fakeLinkRepo
	notifs *fakeNotifRepo
	svc    *feedService
	userID uuid.UUID

	linkOnChange func([]string)
	linkSub      *fakeSub
}

func newFeedHarness(t *testing.T, deviceIDs ...string) *feedHarness {
	t.Helper()

	h := &feedHarness{
		links:  newFakeLinkRepo(),
		notifs: newFakeNotifRepo(),
		userID: uuid.New(),
	}
	for _, id := range deviceIDs {
		require.NoError(t, h.links.SetLink(context.Background(), h.userID, id))
	}

	h.links.watch = func(ctx context.Context, userID uuid.UUID, onChange func([]string)) (repository.Subscription, error) {
		h.linkOnChange = onChange
		h.linkSub = &fakeSub{}
		ids, err := h.links.ListDeviceIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		onChange(ids)

		return h.linkSub, nil
	}

	h.svc = &feedService{
		linkRepo:  h.links,
		notifRepo: h.notifs,
		logger:    slog.New(slog.DiscardHandler),
	}

	return h
}

func notif(id string, createdAt time.Time, read bool) *entity.Notification {
	return &entity.Notification{
		ID:        id,
		Type:      entity.NotificationExpiringSoon,
		Title:     "Product expiring soon",
		CreatedAt: createdAt,
		Read:      read,
	}
}

func TestSubscribe_EmptyDeviceSetDeliversEmptyFeedOnce(t *testing.T) {
	h := newFeedHarness(t)

	var updates [][]*entity.Notification
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func(feed []*entity.Notification) {
		updates = append(updates, feed)
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, updates, 1)
	assert.Empty(t, updates[0])
}

func TestSubscribe_RequiresAuthentication(t *testing.T) {
	h := newFeedHarness(t)

	_, err := h.svc.Subscribe(context.Background(), uuid.Nil, func([]*entity.Notification) {})
	assert.ErrorIs(t, err, domainerrors.ErrNotAuthenticated)
}

func TestSubscribe_AggregatesAcrossDevicesNewestFirst(t *testing.T) {
	h := newFeedHarness(t, "d1", "d2")

	base := time.Now()
	h.notifs.put("d1", notif("a", base.Add(1*time.Minute), false))
	h.notifs.put("d2", notif("b", base.Add(3*time.Minute), false))
	h.notifs.put("d1", notif("c", base.Add(2*time.Minute), false))

	var latest []*entity.Notification
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func(feed []*entity.Notification) {
		latest = feed
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, latest, 3)
	assert.Equal(t, "b", latest[0].ID)
	assert.Equal(t, "c", latest[1].ID)
	assert.Equal(t, "a", latest[2].ID)
}

func TestSubscribe_SameIDOnTwoDevicesAreDistinct(t *testing.T) {
	h := newFeedHarness(t, "d1", "d2")

	base := time.Now()
	h.notifs.put("d1", notif("n1", base.Add(time.Minute), false))
	h.notifs.put("d2", notif("n1", base, false))

	var latest []*entity.Notification
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func(feed []*entity.Notification) {
		latest = feed
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, latest, 2, "identical IDs on different devices must both survive")
	assert.Equal(t, "d1", latest[0].DeviceID)
	assert.Equal(t, "d2", latest[1].DeviceID)
}

func TestSubscribe_NewNotificationTriggersFullReaggregation(t *testing.T) {
	h := newFeedHarness(t, "d1", "d2")

	base := time.Now()
	h.notifs.put("d1", notif("a", base, false))

	var latest []*entity.Notification
	updateCount := 0
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func(feed []*entity.Notification) {
		latest = feed
		updateCount++
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Equal(t, 1, updateCount)

	h.notifs.put("d2", notif("b", base.Add(time.Minute), false))
	h.notifs.fire("d2")

	require.Equal(t, 2, updateCount)
	require.Len(t, latest, 2)
	assert.Equal(t, "b", latest[0].ID)
}

func TestSubscribe_UnlinkedDeviceListenerIsDetached(t *testing.T) {
	h := newFeedHarness(t, "d1", "d2")

	base := time.Now()
	h.notifs.put("d1", notif("a", base, false))
	h.notifs.put("d2", notif("b", base.Add(time.Minute), false))

	var latest []*entity.Notification
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func(feed []*entity.Notification) {
		latest = feed
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, latest, 2)
	require.Equal(t, 1, h.notifs.liveWatcherCount("d2"))

	// Unlink d2 and push the new device set through the link watcher.
	require.NoError(t, h.links.RemoveLink(context.Background(), h.userID, "d2"))
	h.linkOnChange([]string{"d1"})

	assert.Zero(t, h.notifs.liveWatcherCount("d2"), "removed device's listener must be closed")
	require.Len(t, latest, 1)
	assert.Equal(t, "a", latest[0].ID)

	// A late event from the removed device must not resurrect it.
	h.notifs.fire("d2")
	require.Len(t, latest, 1)
}

func TestSubscribe_UnreadableDeviceIsSkipped(t *testing.T) {
	h := newFeedHarness(t, "d1", "d2")

	h.notifs.put("d1", notif("a", time.Now(), false))
	h.notifs.listErr["d2"] = errors.New("permission denied")

	var latest []*entity.Notification
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func(feed []*entity.Notification) {
		latest = feed
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, latest, 1, "a readable device's notifications must survive an unreadable sibling")
	assert.Equal(t, "a", latest[0].ID)
}

func TestSubscribe_LinkWatchFailureDegradesToEmptyFeed(t *testing.T) {
	h := newFeedHarness(t)
	h.links.watch = func(context.Context, uuid.UUID, func([]string)) (repository.Subscription, error) {
		return nil, errors.New("stream rejected")
	}

	var updates [][]*entity.Notification
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func(feed []*entity.Notification) {
		updates = append(updates, feed)
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, updates, 1)
	assert.Empty(t, updates[0])
}

func TestFeedSubscription_MarkAsReadOutsideFeedIsNoOp(t *testing.T) {
	h := newFeedHarness(t, "d1")
	h.notifs.put("d1", notif("a", time.Now(), false))

	sub, err := h.svc.Subscribe(context.Background(), h.userID, func([]*entity.Notification) {})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, sub.MarkAsRead(context.Background(), "d9", "ghost"))
	assert.Empty(t, h.notifs.markCalls, "a target outside the materialized feed must not reach the backend")

	require.NoError(t, sub.MarkAsRead(context.Background(), "d1", "a"))
	assert.Equal(t, []entity.NotificationKey{{DeviceID: "d1", ID: "a"}}, h.notifs.markCalls)
}

func TestFeedSubscription_MarkAllAsReadOnlyTouchesUnread(t *testing.T) {
	h := newFeedHarness(t, "d1", "d2")

	base := time.Now()
	h.notifs.put("d1", notif("a", base, false))
	h.notifs.put("d1", notif("b", base, true))
	h.notifs.put("d2", notif("c", base, false))

	sub, err := h.svc.Subscribe(context.Background(), h.userID, func([]*entity.Notification) {})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, sub.MarkAllAsRead(context.Background()))
	assert.Len(t, h.notifs.markCalls, 2, "already-read entries must be skipped")
	assert.NotContains(t, h.notifs.markCalls, entity.NotificationKey{DeviceID: "d1", ID: "b"})
}

func TestFeedSubscription_DeleteAllReportsPartialFailure(t *testing.T) {
	h := newFeedHarness(t, "d1", "d2")

	base := time.Now()
	h.notifs.put("d1", notif("a", base, false))
	h.notifs.put("d2", notif("b", base, false))
	h.notifs.delErr[entity.NotificationKey{DeviceID: "d2", ID: "b"}] = errors.New("write rejected")

	sub, err := h.svc.Subscribe(context.Background(), h.userID, func([]*entity.Notification) {})
	require.NoError(t, err)
	defer sub.Close()

	err = sub.DeleteAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrWriteFailed)
	assert.Len(t, h.notifs.delCalls, 2, "every delete must be attempted even when one fails")
	assert.NotContains(t, h.notifs.store["d1"], "a", "successful deletes must stick")
}

func TestFeedSubscription_CloseIsIdempotentAndSilencesCallbacks(t *testing.T) {
	h := newFeedHarness(t, "d1")
	h.notifs.put("d1", notif("a", time.Now(), false))

	updateCount := 0
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func([]*entity.Notification) {
		updateCount++
	})
	require.NoError(t, err)
	require.Equal(t, 1, updateCount)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	assert.True(t, h.linkSub.isClosed())
	assert.Zero(t, h.notifs.liveWatcherCount("d1"))

	// Events after Close must not reach the subscriber.
	h.notifs.fire("d1")
	assert.Equal(t, 1, updateCount)
}

func TestFeed_OneShotAggregation(t *testing.T) {
	h := newFeedHarness(t, "d1", "d2")

	base := time.Now()
	h.notifs.put("d1", notif("a", base.Add(time.Minute), false))
	h.notifs.put("d2", notif("b", base, true))

	feed, err := h.svc.Feed(context.Background(), h.userID)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "a", feed[0].ID)
	assert.Equal(t, "b", feed[1].ID)
}

func TestMarkAsRead_StatelessResolvesAgainstFreshFeed(t *testing.T) {
	h := newFeedHarness(t, "d1")
	h.notifs.put("d1", notif("a", time.Now(), false))

	require.NoError(t, h.svc.MarkAsRead(context.Background(), h.userID, "d1", "a"))
	assert.True(t, h.notifs.store["d1"]["a"].Read)

	// Absent targets are a silent no-op.
	calls := len(h.notifs.markCalls)
	require.NoError(t, h.svc.MarkAsRead(context.Background(), h.userID, "d1", "ghost"))
	assert.Len(t, h.notifs.markCalls, calls)
}

// Walks the whole flow: pair a second device, receive its notification in
// the live feed, mark it read through the handle, see the read flag stick.
func TestFeed_LinkSubscribeMarkReadScenario(t *testing.T) {
	h := newFeedHarness(t, "d1")
	deviceSvc := newTestDeviceService(h.links, newFakeDeviceRepo(), &fakeQRCodeService{}, time.Now())

	base := time.Now()
	h.notifs.put("d1", notif("a", base, false))

	var latest []*entity.Notification
	sub, err := h.svc.Subscribe(context.Background(), h.userID, func(feed []*entity.Notification) {
		latest = feed
	})
	require.NoError(t, err)
	defer sub.Close()
	require.Len(t, latest, 1)

	// Pair a new cabinet; the link watcher picks up the grown device set.
	require.NoError(t, deviceSvc.LinkDevice(context.Background(), h.userID, "d2"))
	ids, err := h.links.ListDeviceIDs(context.Background(), h.userID)
	require.NoError(t, err)
	h.linkOnChange(ids)

	require.Len(t, latest, 1, "the new device has nothing to report yet")

	// The cabinet reports an expiring product.
	_, err = h.notifs.Create(context.Background(), "d2", notif("", base.Add(time.Minute), false))
	require.NoError(t, err)
	h.notifs.fire("d2")

	require.Len(t, latest, 2)
	assert.Equal(t, "d2", latest[0].DeviceID)
	assert.False(t, latest[0].Read)

	// The user marks it read; the backend echo refreshes the feed.
	require.NoError(t, sub.MarkAsRead(context.Background(), latest[0].DeviceID, latest[0].ID))
	h.notifs.fire("d2")

	require.Len(t, latest, 2)
	assert.True(t, latest[0].Read)
}

func TestMarkAsRead_WriteFailurePropagates(t *testing.T) {
	h := newFeedHarness(t, "d1")
	h.notifs.put("d1", notif("a", time.Now(), false))
	h.notifs.markErr[entity.NotificationKey{DeviceID: "d1", ID: "a"}] = errors.New("write rejected")

	err := h.svc.MarkAsRead(context.Background(), h.userID, "d1", "a")
	assert.ErrorIs(t, err, domainerrors.ErrWriteFailed)
}
