package admin

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
)

type fakeRepo struct {
	since time.Time
}

func (r *fakeRepo) Analytics(_ context.Context, since time.Time) (*Analytics, error) {
	r.since = since
	return &Analytics{TotalUsers: 3, TopSpecies: []SpeciesCount{{Species: "robin", Posts: 2}}}, nil
}

type fakeUsers struct {
	users  map[uuid.UUID]*user.User
	cutoff time.Time
}

func (u *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return u.users[id], nil
}

func (u *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := u.users[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(u.users, id)
	return nil
}

func (u *fakeUsers) ListInactive(_ context.Context, before time.Time, _, _ int) ([]*user.User, int, error) {
	u.cutoff = before
	var out []*user.User
	for _, usr := range u.users {
		if usr.LastActiveAt.Before(before) {
			out = append(out, usr)
		}
	}
	return out, len(out), nil
}

type fakePhotos struct {
	keys map[uuid.UUID][]string
	err  error
}

func (p *fakePhotos) KeysByAuthor(_ context.Context, id uuid.UUID) ([]string, error) {
	return p.keys[id], p.err
}

type fakeBlobs struct{ keys []string }

func (b *fakeBlobs) Enqueue(_ context.Context, keys ...string) error {
	b.keys = append(b.keys, keys...)
	return nil
}

type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo   *fakeRepo
	users  *fakeUsers
	photos *fakePhotos
	blobs  *fakeBlobs
	svc    *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:   &fakeRepo{},
		users:  &fakeUsers{users: map[uuid.UUID]*user.User{}},
		photos: &fakePhotos{keys: map[uuid.UUID][]string{}},
		blobs:  &fakeBlobs{},
	}
	f.svc = NewService(Deps{
		Repo:          f.repo,
		Users:         f.users,
		Photos:        f.photos,
		Blobs:         f.blobs,
		Tx:            directTx{},
		InactiveAfter: 30 * 24 * time.Hour,
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) addUser(lastActive time.Time) *user.User {
	u := &user.User{ID: uuid.New(), Username: "u", Role: access.RoleUser, LastActiveAt: lastActive}
	f.users.users[u.ID] = u
	return u
}

var admin = &access.Actor{ID: uuid.New(), Role: access.RoleAdmin}

func TestAnalyticsAdminOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Analytics(ctx, &access.Actor{ID: uuid.New(), Role: access.RoleModerator}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	a, err := f.svc.Analytics(ctx, admin)
	if err != nil {
		t.Fatalf("Analytics returned error: %v", err)
	}
	if a.TotalUsers != 3 || len(a.TopSpecies) != 1 {
		t.Fatalf("unexpected analytics: %+v", a)
	}
	if want := fixedNow.Add(-7 * 24 * time.Hour); !f.repo.since.Equal(want) {
		t.Fatalf("expected window start %v, got %v", want, f.repo.since)
	}
}

func TestInactiveUsersUsesCutoff(t *testing.T) {
	f := newFixture()
	stale := f.addUser(fixedNow.Add(-40 * 24 * time.Hour))
	f.addUser(fixedNow.Add(-time.Hour))

	users, total, err := f.svc.InactiveUsers(context.Background(), admin, pagination.Params{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("InactiveUsers returned error: %v", err)
	}
	if total != 1 || users[0].ID != stale.ID {
		t.Fatalf("expected only the stale user, got %d", total)
	}
	if want := fixedNow.Add(-30 * 24 * time.Hour); !f.users.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, f.users.cutoff)
	}
}

func TestDeleteUserEnqueuesBlobs(t *testing.T) {
	f := newFixture()
	target := f.addUser(fixedNow)
	target.AvatarKey = sql.NullString{String: "avatars/a.webp", Valid: true}
	f.photos.keys[target.ID] = []string{"posts/p/1.jpg", "posts/p/1_thumb.jpg"}

	if err := f.svc.DeleteUser(context.Background(), admin, target.ID); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}
	if _, ok := f.users.users[target.ID]; ok {
		t.Fatal("user should be deleted")
	}
	if len(f.blobs.keys) != 3 || f.blobs.keys[2] != "avatars/a.webp" {
		t.Fatalf("unexpected enqueued keys: %v", f.blobs.keys)
	}
}

func TestDeleteUserRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.DeleteUser(ctx, admin, admin.ID); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
	if err := f.svc.DeleteUser(ctx, admin, uuid.New()); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	target := f.addUser(fixedNow)
	if err := f.svc.DeleteUser(ctx, &access.Actor{ID: uuid.New(), Role: access.RoleModerator}, target.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	f.photos.err = errors.New("db down")
	if err := f.svc.DeleteUser(ctx, admin, target.ID); apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if _, ok := f.users.users[target.ID]; !ok {
		t.Fatal("user must survive a failed delete")
	}
}
