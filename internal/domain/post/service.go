package post

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/photo"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
)

// PhotoStore is the subset of photo.Repository posts need.
type PhotoStore interface {
	Create(ctx context.Context, photos []*photo.Photo) error
	ListByPosts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]*photo.Photo, error)
	KeysByPost(ctx context.Context, postID uuid.UUID) ([]string, error)
}

// BlobDeleter schedules storage objects for removal.
type BlobDeleter interface {
	Enqueue(ctx context.Context, keys ...string) error
}

// UploadNotifier wakes the photo worker.
type UploadNotifier interface {
	Uploaded(ctx context.Context) error
}

// FriendLister yields the accepted friends of a user.
type FriendLister interface {
	FriendIDsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// AuthorDirectory loads post authors.
type AuthorDirectory interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error)
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo    Repository
	Photos  PhotoStore
	Blobs   BlobDeleter
	Uploads UploadNotifier
	Friends FriendLister
	Authors AuthorDirectory
	Storage storage.Storage
	Tx      database.Transactor
}

// Service handles post business logic
type Service struct {
	repo    Repository
	photos  PhotoStore
	blobs   BlobDeleter
	uploads UploadNotifier
	friends FriendLister
	authors AuthorDirectory
	storage storage.Storage
	tx      database.Transactor
	now     func() time.Time

	maxCandidates int
}

// NewService creates post service
func NewService(d Deps) *Service {
	return &Service{
		repo:    d.Repo,
		photos:  d.Photos,
		blobs:   d.Blobs,
		uploads: d.Uploads,
		friends: d.Friends,
		authors: d.Authors,
		storage: d.Storage,
		tx:      d.Tx,
		now:     time.Now,

		maxCandidates: MaxAreaCandidates,
	}
}

// Upload is one photo file attached to a new post.
type Upload struct {
	Filename string
	Body     io.Reader
}

// CreateInput holds the fields of a new post.
type CreateInput struct {
	Species     []string
	Description string
	Location    geo.Coordinates
	Photos      []Upload
}

// Detail is a post with everything its views need.
type Detail struct {
	Post       *Post
	Author     *user.User
	Photos     []*photo.Photo
	Reactions  ReactionCounts
	MyReaction ReactionKind
}

// normalizeSpecies trims names and drops case-insensitive duplicates.
func normalizeSpecies(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || utf8.RuneCountInString(s) > MaxSpeciesLength {
			return nil, ErrInvalidSpecies
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 || len(out) > MaxSpecies {
		return nil, ErrInvalidSpecies
	}
	return out, nil
}

func normalizeDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n < 1 || n > MaxDescriptionLength {
		return "", ErrInvalidDescription
	}
	return s, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Post, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load post", err)
	}
	if p == nil {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// Create stores the photos, then inserts the post and its photo rows in
// one transaction. Stored objects are removed again if the insert fails.
func (s *Service) Create(ctx context.Context, actor *access.Actor, in CreateInput) (*Detail, error) {
	if err := access.Require(actor, access.ActionCreatePost); err != nil {
		return nil, err
	}
	species, err := normalizeSpecies(in.Species)
	if err != nil {
		return nil, err
	}
	description, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}
	if err := in.Location.Validate(); err != nil {
		return nil, err
	}
	if len(in.Photos) > photo.MaxPerPost {
		return nil, ErrTooManyPhotos
	}

	type staged struct {
		body        io.Reader
		contentType string
	}
	files := make([]staged, 0, len(in.Photos))
	for _, up := range in.Photos {
		buf, contentType, err := storage.ValidateAndBuffer(up.Body, storage.CategoryPostPhoto)
		if err != nil {
			return nil, err
		}
		files = append(files, staged{body: buf, contentType: contentType})
	}

	now := s.now().UTC()
	p := &Post{
		ID:          uuid.New(),
		AuthorID:    actor.ID,
		Species:     species,
		Description: description,
		Latitude:    in.Location.Latitude,
		Longitude:   in.Location.Longitude,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var stored []string
	cleanup := func() {
		for _, key := range stored {
			if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
				logger.LogError(ctx, err, "Failed to remove orphaned photo", "key", key)
			}
		}
	}

	photos := make([]*photo.Photo, 0, len(files))
	for i, f := range files {
		key := storage.NewKey("posts/"+p.ID.String(), storage.ExtensionForMime(f.contentType))
		if err := s.storage.Put(ctx, key, f.body, f.contentType); err != nil {
			cleanup()
			return nil, apperr.Internal("store photo", err)
		}
		stored = append(stored, key)
		photos = append(photos, &photo.Photo{
			ID:            uuid.New(),
			PostID:        p.ID,
			Position:      i,
			StorageKey:    key,
			ContentType:   f.contentType,
			ProcessStatus: photo.StatusPending,
			CreatedAt:     now,
		})
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		if len(photos) == 0 {
			return nil
		}
		return s.photos.Create(ctx, photos)
	})
	if err != nil {
		cleanup()
		return nil, apperr.Internal("create post", err)
	}

	if len(photos) > 0 && s.uploads != nil {
		if err := s.uploads.Uploaded(ctx); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Msg("Failed to signal photo worker")
		}
	}

	details, err := s.enrich(ctx, actor, []*Post{p})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// Get returns a post. Posts are public; viewer may be nil.
func (s *Service) Get(ctx context.Context, viewer *access.Actor, id uuid.UUID) (*Detail, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.enrich(ctx, viewer, []*Post{p})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// List returns all posts, newest first.
func (s *Service) List(ctx context.Context, viewer *access.Actor, page pagination.Params) ([]*Detail, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}
	posts, total, err := s.repo.List(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("list posts", err)
	}
	return s.enrichPage(ctx, viewer, posts, total)
}

// ListByAuthor returns the posts of one author, newest first.
func (s *Service) ListByAuthor(ctx context.Context, viewer *access.Actor, authorID uuid.UUID, page pagination.Params) ([]*Detail, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}
	posts, total, err := s.repo.ListByAuthor(ctx, authorID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("list author posts", err)
	}
	return s.enrichPage(ctx, viewer, posts, total)
}

// Search matches description or species text.
func (s *Service) Search(ctx context.Context, viewer *access.Actor, query string, page pagination.Params) ([]*Detail, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}
	posts, total, err := s.repo.Search(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("search posts", err)
	}
	return s.enrichPage(ctx, viewer, posts, total)
}

// Feed returns posts authored by the actor's accepted friends.
func (s *Service) Feed(ctx context.Context, actor *access.Actor, page pagination.Params) ([]*Detail, int, error) {
	if err := access.Require(actor, access.ActionReadFeed); err != nil {
		return nil, 0, err
	}
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	friends, err := s.friends.FriendIDsOf(ctx, actor.ID)
	if err != nil {
		return nil, 0, err
	}
	if len(friends) == 0 {
		return []*Detail{}, 0, nil
	}

	posts, total, err := s.repo.ListByAuthors(ctx, friends, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("load feed", err)
	}
	return s.enrichPage(ctx, actor, posts, total)
}

// Update changes description and/or species. Owner only.
func (s *Service) Update(ctx context.Context, actor *access.Actor, id uuid.UUID, req *UpdatePostRequest) (*Detail, error) {
	if req.Description == nil && req.Species == nil {
		return nil, ErrNothingToUpdate
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(actor, p.AuthorID); err != nil {
		return nil, err
	}

	if req.Description != nil {
		if p.Description, err = normalizeDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	if req.Species != nil {
		if p.Species, err = normalizeSpecies(req.Species); err != nil {
			return nil, err
		}
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, err
		}
		return nil, apperr.Internal("update post", err)
	}

	details, err := s.enrich(ctx, actor, []*Post{p})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// Delete removes a post. Authors may delete their own posts; admins may
// delete any post.
func (s *Service) Delete(ctx context.Context, actor *access.Actor, id uuid.UUID) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if ownerErr := access.RequireOwner(actor, p.AuthorID); ownerErr != nil {
		if access.Check(actor, access.ActionDeleteAnyPost).Allowed {
			logger.LogInfo(ctx, "Admin deleting post", "post_id", id, "admin_id", actor.ID)
		} else {
			return ownerErr
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deleted, err := s.Purge(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrPostNotFound
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return err
		}
		return apperr.Internal("delete post", err)
	}
	return nil
}

// Purge deletes a post and schedules its photo objects for removal. It
// performs no authorization and should run inside the caller's
// transaction. Reports false when the post no longer exists.
func (s *Service) Purge(ctx context.Context, id uuid.UUID) (bool, error) {
	keys, err := s.photos.KeysByPost(ctx, id)
	if err != nil {
		return false, err
	}
	if len(keys) > 0 {
		if err := s.blobs.Enqueue(ctx, keys...); err != nil {
			return false, err
		}
	}
	return s.repo.Delete(ctx, id)
}

// Nearby returns posts within the query radius, newest first.
func (s *Service) Nearby(ctx context.Context, viewer *access.Actor, q geo.Query) (geo.Page[*Detail], error) {
	page, err := s.nearby(ctx, q)
	if err != nil {
		return geo.Page[*Detail]{}, err
	}

	posts := make([]*Post, 0, len(page.Hits))
	for _, h := range page.Hits {
		posts = append(posts, h.Item)
	}
	details, err := s.enrich(ctx, viewer, posts)
	if err != nil {
		return geo.Page[*Detail]{}, err
	}

	out := geo.Page[*Detail]{
		Hits:     make([]geo.Hit[*Detail], 0, len(details)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Pages:    page.Pages,

		Truncated: page.Truncated,
	}
	for i, d := range details {
		out.Hits = append(out.Hits, geo.Hit[*Detail]{Item: d, DistanceKm: page.Hits[i].DistanceKm})
	}
	return out, nil
}

// Map returns bare posts for map markers, optionally filtered by species.
func (s *Service) Map(ctx context.Context, q geo.Query) (geo.Page[*Post], error) {
	return s.nearby(ctx, q)
}

func (s *Service) nearby(ctx context.Context, q geo.Query) (geo.Page[*Post], error) {
	if err := q.Validate(); err != nil {
		return geo.Page[*Post]{}, err
	}

	species := make([]string, 0, len(q.Species))
	for _, sp := range q.Species {
		if sp = strings.ToLower(strings.TrimSpace(sp)); sp != "" {
			species = append(species, sp)
		}
	}

	// One extra row tells a full area from a capped one.
	posts, err := s.repo.WithinBox(ctx, geo.BoundingBox(q.Center, q.RadiusKm), species, s.maxCandidates+1)
	if err != nil {
		return geo.Page[*Post]{}, apperr.Internal("load posts in area", err)
	}
	truncated := len(posts) > s.maxCandidates
	if truncated {
		posts = posts[:s.maxCandidates]
	}

	candidates := make([]geo.Candidate[*Post], 0, len(posts))
	for _, p := range posts {
		candidates = append(candidates, p.candidate())
	}
	page, err := geo.Nearby(q, candidates)
	if err != nil {
		return geo.Page[*Post]{}, err
	}
	page.Truncated = truncated
	return page, nil
}

func (s *Service) enrichPage(ctx context.Context, viewer *access.Actor, posts []*Post, total int) ([]*Detail, int, error) {
	details, err := s.enrich(ctx, viewer, posts)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// enrich attaches authors, photos and reactions, preserving order.
func (s *Service) enrich(ctx context.Context, viewer *access.Actor, posts []*Post) ([]*Detail, error) {
	details := make([]*Detail, 0, len(posts))
	if len(posts) == 0 {
		return details, nil
	}

	ids := make([]uuid.UUID, 0, len(posts))
	authorIDs := make([]uuid.UUID, 0, len(posts))
	seenAuthor := map[uuid.UUID]bool{}
	for _, p := range posts {
		ids = append(ids, p.ID)
		if !seenAuthor[p.AuthorID] {
			seenAuthor[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}

	authors, err := s.authors.ListByIDs(ctx, authorIDs)
	if err != nil {
		return nil, apperr.Internal("load authors", err)
	}
	byID := make(map[uuid.UUID]*user.User, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}

	photos, err := s.photos.ListByPosts(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load photos", err)
	}
	counts, err := s.repo.CountReactions(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("count reactions", err)
	}
	mine := map[uuid.UUID]ReactionKind{}
	if viewer != nil {
		if mine, err = s.repo.UserReactions(ctx, viewer.ID, ids); err != nil {
			return nil, apperr.Internal("load reactions", err)
		}
	}

	for _, p := range posts {
		details = append(details, &Detail{
			Post:       p,
			Author:     byID[p.AuthorID],
			Photos:     photos[p.ID],
			Reactions:  counts[p.ID],
			MyReaction: mine[p.ID],
		})
	}
	return details, nil
}
