package user

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
	"github.com/birdwatch/birdwatch-api/internal/pkg/imaging"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
)

type fakeRepo struct {
	users   map[uuid.UUID]*User
	posts   map[uuid.UUID]int
	touched map[uuid.UUID]time.Time
}

func newFakeRepo(users ...*User) *fakeRepo {
	r := &fakeRepo{users: map[uuid.UUID]*User{}, posts: map[uuid.UUID]int{}, touched: map[uuid.UUID]time.Time{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, u *User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*User, error) {
	out := []*User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeRepo) UpdateProfile(_ context.Context, id uuid.UUID, username string, pic sql.NullString) error {
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	for _, other := range r.users {
		if other.ID != id && other.Username == username {
			return ErrUsernameTaken
		}
	}
	u.Username = username
	u.ProfilePicture = pic
	return nil
}

func (r *fakeRepo) UpdateAvatar(_ context.Context, id uuid.UUID, url, key string) error {
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.ProfilePicture = sql.NullString{String: url, Valid: true}
	u.AvatarKey = sql.NullString{String: key, Valid: true}
	return nil
}

func (r *fakeRepo) UpdateLocation(_ context.Context, id uuid.UUID, loc geo.Coordinates) error {
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Latitude = sql.NullFloat64{Float64: loc.Latitude, Valid: true}
	u.Longitude = sql.NullFloat64{Float64: loc.Longitude, Valid: true}
	return nil
}

func (r *fakeRepo) UpdateRole(_ context.Context, id uuid.UUID, role access.Role) error {
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (r *fakeRepo) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	r.touched[id] = at
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeRepo) CountPosts(_ context.Context, id uuid.UUID) (int, error) {
	return r.posts[id], nil
}

func (r *fakeRepo) ListInactive(context.Context, time.Time, int, int) ([]*User, int, error) {
	return nil, 0, nil
}

type fixedFriends int

func (f fixedFriends) CountAccepted(context.Context, uuid.UUID) (int, error) { return int(f), nil }

type fakeBlobs struct{ keys []string }

func (f *fakeBlobs) Enqueue(_ context.Context, keys ...string) error {
	f.keys = append(f.keys, keys...)
	return nil
}

type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(t *testing.T, repo *fakeRepo, blobs *fakeBlobs) *Service {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir(), "http://cdn.test")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	return NewService(repo, fixedFriends(4), st, imaging.NewProcessor(imaging.DefaultConfig()), blobs, directTx{})
}

func testUser() *User {
	return &User{ID: uuid.New(), Username: "robin", Email: "robin@example.com", Role: access.RoleUser}
}

func TestGetProfileIncludesCounters(t *testing.T) {
	u := testUser()
	repo := newFakeRepo(u)
	repo.posts[u.ID] = 7
	svc := newTestService(t, repo, &fakeBlobs{})

	p, err := svc.GetProfile(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PostCount != 7 || p.FriendCount != 4 {
		t.Fatalf("unexpected counters: posts=%d friends=%d", p.PostCount, p.FriendCount)
	}

	if _, err := svc.GetProfile(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateProfileOwnerOnly(t *testing.T) {
	u := testUser()
	other := &User{ID: uuid.New(), Username: "wren", Email: "wren@example.com", Role: access.RoleAdmin}
	repo := newFakeRepo(u, other)
	svc := newTestService(t, repo, &fakeBlobs{})

	name := "robin_red"
	if _, err := svc.UpdateProfile(context.Background(), other.Actor(), u.ID, &UpdateProfileRequest{Username: &name}); !errors.Is(err, access.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.UpdateProfile(context.Background(), nil, u.ID, &UpdateProfileRequest{Username: &name}); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	updated, err := svc.UpdateProfile(context.Background(), u.Actor(), u.ID, &UpdateProfileRequest{Username: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Username != name || repo.users[u.ID].Username != name {
		t.Fatalf("username not updated")
	}

	taken := "wren"
	if _, err := svc.UpdateProfile(context.Background(), u.Actor(), u.ID, &UpdateProfileRequest{Username: &taken}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUploadAvatarReplacesPreviousObject(t *testing.T) {
	u := testUser()
	u.AvatarKey = sql.NullString{String: "avatars/old.png", Valid: true}
	repo := newFakeRepo(u)
	blobs := &fakeBlobs{}
	svc := newTestService(t, repo, blobs)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 600, 300))); err != nil {
		t.Fatalf("encode: %v", err)
	}

	updated, err := svc.UploadAvatar(context.Background(), u.Actor(), u.ID, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.ProfilePicture.Valid || updated.AvatarKey.String == "avatars/old.png" {
		t.Fatalf("avatar not replaced: %+v", updated)
	}
	if len(blobs.keys) != 1 || blobs.keys[0] != "avatars/old.png" {
		t.Fatalf("old avatar not scheduled for deletion: %v", blobs.keys)
	}
}

func TestUploadAvatarRejectsNonImage(t *testing.T) {
	u := testUser()
	svc := newTestService(t, newFakeRepo(u), &fakeBlobs{})

	_, err := svc.UploadAvatar(context.Background(), u.Actor(), u.ID, bytes.NewReader([]byte("plain text, not an image")))
	if !errors.Is(err, storage.ErrInvalidMimeType) {
		t.Fatalf("expected ErrInvalidMimeType, got %v", err)
	}
}

func TestUpdateLocationValidates(t *testing.T) {
	u := testUser()
	repo := newFakeRepo(u)
	svc := newTestService(t, repo, &fakeBlobs{})

	if _, err := svc.UpdateLocation(context.Background(), u.Actor(), geo.Coordinates{Latitude: 91}); apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	updated, err := svc.UpdateLocation(context.Background(), u.Actor(), geo.Coordinates{Latitude: 51.5, Longitude: -0.12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc := updated.Location(); loc == nil || loc.Latitude != 51.5 {
		t.Fatalf("location not stored: %+v", loc)
	}
}

func TestActivityTrackerWithoutRedisWritesThrough(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewActivityTracker(repo, nil)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return at }

	id := uuid.New()
	if err := tracker.Touch(context.Background(), id); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if !repo.touched[id].Equal(at) {
		t.Fatalf("expected touch at %v, got %v", at, repo.touched[id])
	}
}
