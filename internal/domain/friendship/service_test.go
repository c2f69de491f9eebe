package friendship

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/realtime"
)

type fakeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Friendship
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]*Friendship{}}
}

func samePair(f *Friendship, a, b uuid.UUID) bool {
	return (f.RequesterID == a && f.RecipientID == b) || (f.RequesterID == b && f.RecipientID == a)
}

func (r *fakeRepo) Create(_ context.Context, f *Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if samePair(existing, f.RequesterID, f.RecipientID) {
			return ErrAlreadyExists
		}
	}
	cp := *f
	r.rows[f.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (r *fakeRepo) ExistsBetween(_ context.Context, a, b uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.rows {
		if samePair(f, a, b) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) UpdateStatusIfPending(_ context.Context, id uuid.UUID, status Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok || f.Status != StatusPending {
		return false, nil
	}
	f.Status = status
	return true, nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[id]
	delete(r.rows, id)
	return ok, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Friendship
	for _, f := range r.rows {
		if f.Involves(userID) {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) FriendIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for _, f := range r.rows {
		if f.Status == StatusAccepted && f.Involves(userID) {
			out = append(out, f.OtherParty(userID))
		}
	}
	return out, nil
}

func (r *fakeRepo) CountAccepted(ctx context.Context, userID uuid.UUID) (int, error) {
	ids, _ := r.FriendIDs(ctx, userID)
	return len(ids), nil
}

type fakeUsers map[uuid.UUID]*user.User

func (u fakeUsers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := u[id]
	return ok, nil
}

func (u fakeUsers) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*user.User, error) {
	var out []*user.User
	for _, id := range ids {
		if usr, ok := u[id]; ok {
			out = append(out, usr)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	events map[uuid.UUID][]realtime.EventType
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, event realtime.Event) {
	if n.events == nil {
		n.events = map[uuid.UUID][]realtime.EventType{}
	}
	n.events[userID] = append(n.events[userID], event.Type)
}

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	notifier *recordingNotifier
	alice    *access.Actor
	bob      *access.Actor
	carol    *access.Actor
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newFakeRepo(),
		notifier: &recordingNotifier{},
		alice:    &access.Actor{ID: uuid.New(), Role: access.RoleUser},
		bob:      &access.Actor{ID: uuid.New(), Role: access.RoleUser},
		carol:    &access.Actor{ID: uuid.New(), Role: access.RoleUser},
	}
	users := fakeUsers{}
	for name, a := range map[string]*access.Actor{"alice": f.alice, "bob": f.bob, "carol": f.carol} {
		users[a.ID] = &user.User{ID: a.ID, Username: name, Role: a.Role}
	}
	f.svc = NewService(f.repo, users, f.notifier)
	return f
}

func TestSendRequestCreatesPendingAndNotifies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, f.alice, f.bob.ID)
	if err != nil {
		t.Fatalf("SendRequest returned error: %v", err)
	}
	if req.Status != StatusPending || req.RequesterID != f.alice.ID || req.RecipientID != f.bob.ID {
		t.Fatalf("unexpected request: %+v", req)
	}
	if got := f.notifier.events[f.bob.ID]; len(got) != 1 || got[0] != realtime.EventFriendRequest {
		t.Fatalf("expected friend_request event for recipient, got %v", got)
	}
}

func TestSendRequestToSelfIsInvalid(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SendRequest(context.Background(), f.alice, f.alice.ID)
	if !errors.Is(err, ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
}

func TestSendRequestToUnknownUser(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SendRequest(context.Background(), f.alice, uuid.New())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSendRequestReverseDirectionConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.SendRequest(ctx, f.alice, f.bob.ID); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	_, err := f.svc.SendRequest(ctx, f.bob, f.alice.ID)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	_, err = f.svc.SendRequest(ctx, f.alice, f.bob.ID)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict on repeat, got %v", err)
	}
}

func TestSendRequestAfterDeclineConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, _ := f.svc.SendRequest(ctx, f.alice, f.bob.ID)
	if _, err := f.svc.Respond(ctx, f.bob, req.ID, DecisionDecline); err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, f.alice, f.bob.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict while declined row exists, got %v", err)
	}
}

func TestRespondRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.SendRequest(ctx, f.alice, f.bob.ID)

	if _, err := f.svc.Respond(ctx, f.alice, req.ID, DecisionAccept); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("requester responding: expected ErrNotRecipient, got %v", err)
	}
	if _, err := f.svc.Respond(ctx, f.carol, req.ID, DecisionAccept); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("outsider responding: expected ErrNotRecipient, got %v", err)
	}
	if _, err := f.svc.Respond(ctx, f.bob, uuid.New(), DecisionAccept); !errors.Is(err, ErrFriendshipNotFound) {
		t.Fatalf("unknown id: expected ErrFriendshipNotFound, got %v", err)
	}
	if _, err := f.svc.Respond(ctx, f.bob, req.ID, Decision("MAYBE")); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("bad decision: expected ErrInvalidDecision, got %v", err)
	}

	accepted, err := f.svc.Respond(ctx, f.bob, req.ID, DecisionAccept)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("expected ACCEPTED, got %s", accepted.Status)
	}
	if got := f.notifier.events[f.alice.ID]; len(got) != 1 || got[0] != realtime.EventFriendRequestAccepted {
		t.Fatalf("expected accepted event for requester, got %v", got)
	}

	if _, err := f.svc.Respond(ctx, f.bob, req.ID, DecisionDecline); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("second response: expected invalid state, got %v", err)
	}
}

func TestFriendIDsAreSymmetric(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, _ := f.svc.SendRequest(ctx, f.alice, f.bob.ID)
	pending, _ := f.svc.FriendIDsOf(ctx, f.alice.ID)
	if len(pending) != 0 {
		t.Fatalf("pending request must not count as friendship: %v", pending)
	}

	if _, err := f.svc.Respond(ctx, f.bob, req.ID, DecisionAccept); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	a, _ := f.svc.FriendIDsOf(ctx, f.alice.ID)
	b, _ := f.svc.FriendIDsOf(ctx, f.bob.ID)
	if len(a) != 1 || a[0] != f.bob.ID || len(b) != 1 || b[0] != f.alice.ID {
		t.Fatalf("expected symmetric friendship, got alice=%v bob=%v", a, b)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.svc.SendRequest(ctx, f.alice, f.bob.ID)

	if err := f.svc.Remove(ctx, f.carol, req.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if err := f.svc.Remove(ctx, f.alice, req.ID); err != nil {
		t.Fatalf("requester cancel failed: %v", err)
	}
	if err := f.svc.Remove(ctx, f.alice, req.ID); !errors.Is(err, ErrFriendshipNotFound) {
		t.Fatalf("expected not found after removal, got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, f.bob, f.alice.ID); err != nil {
		t.Fatalf("request after removal should succeed, got %v", err)
	}
}

func TestListGroupsByState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	toBob, _ := f.svc.SendRequest(ctx, f.alice, f.bob.ID)
	if _, err := f.svc.Respond(ctx, f.bob, toBob.ID, DecisionAccept); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, f.carol, f.alice.ID); err != nil {
		t.Fatalf("carol request failed: %v", err)
	}

	overview, err := f.svc.List(ctx, f.alice)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(overview.Friends) != 1 || len(overview.Incoming) != 1 || len(overview.Outgoing) != 0 {
		t.Fatalf("unexpected grouping: friends=%d incoming=%d outgoing=%d",
			len(overview.Friends), len(overview.Incoming), len(overview.Outgoing))
	}
	resp := OverviewResponseFrom(overview, f.alice.ID)
	if resp.Friends[0].User == nil || resp.Friends[0].User.Username != "bob" {
		t.Fatalf("expected bob in friends, got %+v", resp.Friends[0])
	}
	if resp.Incoming[0].User == nil || resp.Incoming[0].User.Username != "carol" {
		t.Fatalf("expected carol incoming, got %+v", resp.Incoming[0])
	}
}

func TestAnonymousIsRejected(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SendRequest(context.Background(), nil, f.bob.ID)
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
