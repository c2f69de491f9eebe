package birdicon

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
)

type fakeRepo struct {
	subs      map[uuid.UUID]*Submission
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{subs: map[uuid.UUID]*Submission{}}
}

func (r *fakeRepo) Create(_ context.Context, s *Submission) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *s
	r.subs[s.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Submission, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) List(_ context.Context, status Status, _, _ int) ([]*Submission, int, error) {
	var out []*Submission
	for _, s := range r.subs {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (r *fakeRepo) SetStatusIfPending(_ context.Context, id uuid.UUID, status Status, _ uuid.UUID, _ time.Time) (bool, error) {
	s, ok := r.subs[id]
	if !ok || s.Status != StatusPending {
		return false, nil
	}
	s.Status = status
	return true, nil
}

type fakeBirds struct {
	icons map[string]string
	err   error
}

func (b *fakeBirds) SetIcon(_ context.Context, name, iconURL string) error {
	if b.err != nil {
		return b.err
	}
	b.icons[name] = iconURL
	return nil
}

type fakeBlobs struct{ keys []string }

func (b *fakeBlobs) Enqueue(_ context.Context, keys ...string) error {
	b.keys = append(b.keys, keys...)
	return nil
}

// rollbackTx restores submission statuses when fn fails.
type rollbackTx struct{ repo *fakeRepo }

func (t rollbackTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	saved := map[uuid.UUID]Status{}
	for id, s := range t.repo.subs {
		saved[id] = s.Status
	}
	if err := fn(ctx); err != nil {
		for id, st := range saved {
			t.repo.subs[id].Status = st
		}
		return err
	}
	return nil
}

type fixture struct {
	repo  *fakeRepo
	birds *fakeBirds
	blobs *fakeBlobs
	store *storage.LocalStorage
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir(), "http://cdn.test")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	f := &fixture{
		repo:  newFakeRepo(),
		birds: &fakeBirds{icons: map[string]string{}},
		blobs: &fakeBlobs{},
		store: st,
	}
	f.svc = NewService(Deps{
		Repo:    f.repo,
		Birds:   f.birds,
		Blobs:   f.blobs,
		Storage: st,
		Tx:      rollbackTx{f.repo},
	})
	return f
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func actor(role access.Role) *access.Actor {
	return &access.Actor{ID: uuid.New(), Role: role}
}

func TestSubmitStoresIcon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, actor(access.RoleUser), "  Erithacus rubecula ", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if sub.Status != StatusPending || sub.BirdSpecies != "Erithacus rubecula" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if sub.ContentType != "image/png" || !strings.HasPrefix(sub.StorageKey, "bird-icons/") {
		t.Fatalf("unexpected stored object: %s %s", sub.ContentType, sub.StorageKey)
	}
	ok, err := f.store.Exists(ctx, sub.StorageKey)
	if err != nil || !ok {
		t.Fatalf("icon not stored: %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := actor(access.RoleUser)

	if _, err := f.svc.Submit(ctx, user, " ", bytes.NewReader(pngBytes(t))); !errors.Is(err, ErrInvalidSpecies) {
		t.Fatalf("expected ErrInvalidSpecies, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, user, strings.Repeat("a", 101), bytes.NewReader(pngBytes(t))); !errors.Is(err, ErrInvalidSpecies) {
		t.Fatalf("expected ErrInvalidSpecies for long name, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, user, "robin", strings.NewReader("plain text")); !errors.Is(err, storage.ErrInvalidMimeType) {
		t.Fatalf("expected ErrInvalidMimeType, got %v", err)
	}
	big := append(pngBytes(t), bytes.Repeat([]byte{0}, 2<<20)...)
	if _, err := f.svc.Submit(ctx, user, "robin", bytes.NewReader(big)); !errors.Is(err, storage.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, nil, "robin", bytes.NewReader(pngBytes(t))); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSubmitRemovesFileWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Submit(context.Background(), actor(access.RoleUser), "robin", bytes.NewReader(pngBytes(t)))
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	subs, _, _ := f.repo.List(context.Background(), "", 10, 0)
	if len(subs) != 0 {
		t.Fatalf("expected no submissions, got %d", len(subs))
	}
}

func TestReviewApproveSetsBirdIcon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, _ := f.svc.Submit(ctx, actor(access.RoleUser), "robin", bytes.NewReader(pngBytes(t)))

	if _, err := f.svc.Review(ctx, actor(access.RoleUser), sub.ID, DecisionApprove); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for user, got %v", err)
	}

	reviewed, err := f.svc.Review(ctx, actor(access.RoleModerator), sub.ID, DecisionApprove)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if reviewed.Status != StatusApproved || !reviewed.ReviewedBy.Valid {
		t.Fatalf("unexpected review result: %+v", reviewed)
	}
	if f.birds.icons["robin"] != sub.URL {
		t.Fatalf("bird icon not set: %v", f.birds.icons)
	}

	if _, err := f.svc.Review(ctx, actor(access.RoleAdmin), sub.ID, DecisionReject); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
}

func TestReviewApproveRollsBackWhenCatalogFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, _ := f.svc.Submit(ctx, actor(access.RoleUser), "robin", bytes.NewReader(pngBytes(t)))
	f.birds.err = errors.New("constraint violated")

	if _, err := f.svc.Review(ctx, actor(access.RoleAdmin), sub.ID, DecisionApprove); apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if got := f.repo.subs[sub.ID].Status; got != StatusPending {
		t.Fatalf("submission must stay PENDING, got %s", got)
	}
}

func TestReviewRejectSchedulesRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, _ := f.svc.Submit(ctx, actor(access.RoleUser), "robin", bytes.NewReader(pngBytes(t)))

	reviewed, err := f.svc.Review(ctx, actor(access.RoleAdmin), sub.ID, DecisionReject)
	if err != nil || reviewed.Status != StatusRejected {
		t.Fatalf("reject failed: %+v %v", reviewed, err)
	}
	if len(f.blobs.keys) != 1 || f.blobs.keys[0] != sub.StorageKey {
		t.Fatalf("expected icon key enqueued, got %v", f.blobs.keys)
	}
	if len(f.birds.icons) != 0 {
		t.Fatal("reject must not touch the catalog")
	}
}

func TestReviewErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := actor(access.RoleModerator)

	if _, err := f.svc.Review(ctx, mod, uuid.New(), DecisionApprove); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
	if _, err := f.svc.Review(ctx, mod, uuid.New(), Decision("MAYBE")); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
}

func TestListRequiresStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	page := pagination.Params{Page: 1, Limit: 20}
	_, _ = f.svc.Submit(ctx, actor(access.RoleUser), "robin", bytes.NewReader(pngBytes(t)))

	if _, _, err := f.svc.List(ctx, actor(access.RoleUser), "", page); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, _, err := f.svc.List(ctx, actor(access.RoleAdmin), Status("DONE"), page); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	subs, total, err := f.svc.List(ctx, actor(access.RoleModerator), StatusPending, page)
	if err != nil || total != 1 || len(subs) != 1 {
		t.Fatalf("expected one pending submission, got %d (%v)", total, err)
	}
}
