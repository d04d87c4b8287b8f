// Package command implements the write-side flows of the component
// design: every mutation commits to the store first, then mutates the
// search index, then flushes it, and only then best-effort notifies —
// store commit happens-before index mutation happens-before flush
// happens-before the next query's visibility. Index and notification
// failures are logged but never fail the flow once the store commit
// has succeeded.
package command

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"placedir/internal/authz"
	"placedir/internal/cache"
	"placedir/internal/domain"
	"placedir/internal/geo"
	"placedir/internal/notify"
	"placedir/internal/search"
	"placedir/internal/services/query"
	"placedir/internal/store/postgres"
	"placedir/pkg"
	"placedir/pkg/mlog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service composes the store, search index and notifier into the
// flow orchestration layer. Cache is optional: a nil value simply
// disables the invalidation calls below, matching query.Service's own
// nil-disables-caching contract.
type Service struct {
	DB            *postgres.DB
	Places        *postgres.PlaceRepository
	Ratings       *postgres.RatingRepository
	Comments      *postgres.CommentRepository
	Users         *postgres.UserRepository
	Orgs          *postgres.OrganizationRepository
	Events        *postgres.EventRepository
	Subscriptions *postgres.SubscriptionRepository
	Categories    *postgres.CategoryRepository
	Index         *search.Index
	Cache         *cache.Cache
	Notify        *notify.Publisher
	Logger        mlog.Logger
}

// invalidatePlace evicts a place's cached current revision so that a
// reader hitting query.Service.GetPlaces right after this write
// observes the new revision instead of a stale cached one.
func (s *Service) invalidatePlace(ctx context.Context, placeUID string) {
	s.Cache.Invalidate(ctx, query.PlaceCacheKey(placeUID))
}

// ReindexAll rebuilds the search index from the store's current
// revisions, place by place, flushing once at the end rather than
// after every write. It is the flow behind the CLI's reindex-all
// subcommand and never runs as part of request handling.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	uids, err := s.Places.AllUIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("command: reindex-all: list place uids: %w", err)
	}

	indexed := 0

	for _, uid := range uids {
		revs, err := s.Places.GetPlaces(ctx, []string{uid})
		if err != nil || len(revs) != 1 {
			s.Logger.Errorf("command: reindex-all %s: load current revision: %v", uid, err)
			continue
		}

		avg, err := s.Ratings.AverageRatings(ctx, uid)
		if err != nil {
			s.Logger.Errorf("command: reindex-all %s: average ratings: %v", uid, err)
			continue
		}

		if err := s.Index.AddOrUpdatePlace(revs[0], avg); err != nil {
			s.Logger.Errorf("command: reindex-all %s: index write: %v", uid, err)
			continue
		}

		indexed++
	}

	if err := s.Index.Flush(); err != nil {
		return indexed, fmt.Errorf("command: reindex-all: index flush: %w", err)
	}

	return indexed, nil
}

func (s *Service) reindexPlace(ctx context.Context, placeUID string) {
	revs, err := s.Places.GetPlaces(ctx, []string{placeUID})
	if err != nil || len(revs) != 1 {
		s.Logger.Errorf("command: reindex %s: load current revision: %v", placeUID, err)
		return
	}

	avg, err := s.Ratings.AverageRatings(ctx, placeUID)
	if err != nil {
		s.Logger.Errorf("command: reindex %s: average ratings: %v", placeUID, err)
		return
	}

	if err := s.Index.AddOrUpdatePlace(revs[0], avg); err != nil {
		s.Logger.Errorf("command: reindex %s: index write: %v", placeUID, err)
		return
	}

	if err := s.Index.Flush(); err != nil {
		s.Logger.Errorf("command: reindex %s: index flush: %v", placeUID, err)
	}
}

// NewPlaceRequest is the input to CreatePlace: callers supply the
// fields a revision carries plus the category uids to merge into its
// tag set.
type NewPlaceRequest struct {
	PlaceUID    string
	Title       string
	Description string
	Pos         geo.Point
	Address     *domain.Address
	Contact     *domain.Contact
	Homepage    string
	Image       string
	ImageLink   string
	Tags        []string
	CategoryIDs []string
	License     string
}

// CreatePlace creates a new Place at revision 0.
func (s *Service) CreatePlace(ctx context.Context, req NewPlaceRequest, actorEmail string) (domain.PlaceRevision, error) {
	if req.Title == "" {
		return domain.PlaceRevision{}, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	if req.Homepage != "" {
		if _, err := url.ParseRequestURI(req.Homepage); err != nil {
			return domain.PlaceRevision{}, fmt.Errorf("%w: %s", domain.ErrInvalidURL, req.Homepage)
		}
	}

	if req.Address != nil && req.Address.Country != "" {
		if err := common.ValidateCountryAddress(req.Address.Country); err != nil {
			return domain.PlaceRevision{}, fmt.Errorf("%w: %s", err, req.Address.Country)
		}
	}

	uid := req.PlaceUID
	if uid == "" {
		uid = common.GenerateUUIDv7()
	}

	tags, err := s.mergedTags(ctx, req.Tags, req.CategoryIDs)
	if err != nil {
		return domain.PlaceRevision{}, err
	}

	rev := domain.PlaceRevision{
		PlaceUID:    uid,
		Rev:         0,
		CreatedAt:   time.Now().Unix(),
		CreatedBy:   actorEmail,
		Status:      domain.Created,
		Title:       req.Title,
		Description: req.Description,
		Pos:         req.Pos,
		Address:     req.Address,
		Contact:     req.Contact,
		Homepage:    req.Homepage,
		Image:       req.Image,
		ImageLink:   req.ImageLink,
		Tags:        tags,
	}

	if err := s.Places.CreateOrUpdatePlace(ctx, rev, req.License); err != nil {
		return domain.PlaceRevision{}, err
	}

	s.invalidatePlace(ctx, uid)
	s.reindexPlace(ctx, uid)
	s.notifyPlaceChanged(ctx, rev, notify.KeyEntryAdded)

	return rev, nil
}

// UpdatePlaceRequest carries the fields of UpdatePlace, resolved against
// the place's current revision by the flow.
type UpdatePlaceRequest struct {
	PlaceUID    string
	Title       string
	Description string
	Pos         geo.Point
	Address     *domain.Address
	Contact     *domain.Contact
	Homepage    string
	Image       string
	ImageLink   string
	Tags        []string
	CategoryIDs []string
}

// UpdatePlace appends a new revision on top of the place's current
// revision, after authorizing the actor against the creator-or-role-or-
// owned-tag rule.
func (s *Service) UpdatePlace(ctx context.Context, req UpdatePlaceRequest, actor authz.Actor) (domain.PlaceRevision, error) {
	current, err := s.Places.GetPlaces(ctx, []string{req.PlaceUID})
	if err != nil {
		return domain.PlaceRevision{}, err
	}

	if len(current) != 1 {
		return domain.PlaceRevision{}, fmt.Errorf("%w: place %s", domain.ErrNotFound, req.PlaceUID)
	}

	prev := current[0]

	if req.Address != nil && req.Address.Country != "" {
		if err := common.ValidateCountryAddress(req.Address.Country); err != nil {
			return domain.PlaceRevision{}, fmt.Errorf("%w: %s", err, req.Address.Country)
		}
	}

	tags, err := s.mergedTags(ctx, req.Tags, req.CategoryIDs)
	if err != nil {
		return domain.PlaceRevision{}, err
	}

	allOwnedTags, err := s.Orgs.AllOwnedTags(ctx)
	if err != nil {
		return domain.PlaceRevision{}, err
	}

	owned := make(map[string]bool, len(allOwnedTags))
	for _, t := range allOwnedTags {
		owned[t] = true
	}

	var changedOwnedTags []string

	for _, t := range symmetricDifference(prev.Tags, tags) {
		if owned[t] {
			changedOwnedTags = append(changedOwnedTags, t)
		}
	}

	if err := authz.Authorize(actor, authz.ActionUpdatePlace, authz.UpdatePlaceTarget{
		CreatedBy:        prev.CreatedBy,
		ChangedOwnedTags: changedOwnedTags,
	}); err != nil {
		return domain.PlaceRevision{}, err
	}

	rev := prev
	rev.Rev = prev.Rev + 1
	rev.CreatedAt = time.Now().Unix()
	rev.CreatedBy = actor.Email
	rev.Title = req.Title
	rev.Description = req.Description
	rev.Pos = req.Pos
	rev.Address = req.Address
	rev.Contact = req.Contact
	rev.Homepage = req.Homepage
	rev.Image = req.Image
	rev.ImageLink = req.ImageLink
	rev.Tags = tags

	// CreateOrUpdatePlace only consults the license argument the first
	// time a Place row is created (rev == 0); for rev > 0 the place
	// already exists, so any non-empty placeholder satisfies it.
	if err := s.Places.CreateOrUpdatePlace(ctx, rev, "unchanged"); err != nil {
		return domain.PlaceRevision{}, err
	}

	s.invalidatePlace(ctx, req.PlaceUID)
	s.reindexPlace(ctx, req.PlaceUID)
	s.notifyPlaceChanged(ctx, rev, notify.KeyEntryUpdated)

	return rev, nil
}

// ArchivePlaces transitions each place's current revision to Archived
// after an authorization check that requires role >= Scout, cascading
// archival to the place's live ratings and comments and removing it
// from the search index.
func (s *Service) ArchivePlaces(ctx context.Context, uids []string, actor authz.Actor) (int, error) {
	if err := authz.Authorize(actor, authz.ActionArchivePlaces, nil); err != nil {
		return 0, err
	}

	at := time.Now().Unix()

	n, err := s.Places.ArchivePlaces(ctx, uids, at, actor.Email)
	if err != nil {
		return 0, err
	}

	if err := postgres.ArchivePlaceCascade(ctx, s.DB, s.Ratings, s.Comments, uids, at); err != nil {
		s.Logger.Errorf("command: archive places: rating/comment cascade: %v", err)
	}

	for _, uid := range uids {
		s.invalidatePlace(ctx, uid)

		if err := s.Index.RemovePlaceByID(uid); err != nil {
			s.Logger.Errorf("command: archive places: remove %s from index: %v", uid, err)
		}
	}

	if err := s.Index.Flush(); err != nil {
		s.Logger.Errorf("command: archive places: flush index: %v", err)
	}

	return n, nil
}

// CreateRating creates a new rating for a place and re-derives its
// average ratings into the search index.
func (s *Service) CreateRating(ctx context.Context, rating domain.Rating) (domain.Rating, error) {
	if rating.UID == "" {
		rating.UID = common.GenerateUUIDv7()
	}

	rating.CreatedAt = time.Now().Unix()

	if rating.Value < domain.MinRatingValue || rating.Value > domain.MaxRatingValue {
		return domain.Rating{}, fmt.Errorf("%w: rating value %d out of range", domain.ErrInvalidInput, rating.Value)
	}

	if err := s.Ratings.CreateRating(ctx, rating); err != nil {
		return domain.Rating{}, err
	}

	s.reindexPlace(ctx, rating.PlaceUID)

	return rating, nil
}

// CreateComment creates a new comment on a rating.
func (s *Service) CreateComment(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	if c.UID == "" {
		c.UID = common.GenerateUUIDv7()
	}

	c.CreatedAt = time.Now().Unix()

	if err := s.Comments.CreateComment(ctx, c); err != nil {
		return domain.Comment{}, err
	}

	return c, nil
}

// ArchiveRatings soft-archives ratings after an authorization check
// requiring role >= Scout, then re-derives the affected places' search
// documents.
func (s *Service) ArchiveRatings(ctx context.Context, uids []string, actor authz.Actor) (int64, error) {
	if err := authz.Authorize(actor, authz.ActionArchiveRatings, nil); err != nil {
		return 0, err
	}

	affected, err := s.Ratings.LoadRatings(ctx, uids)
	if err != nil {
		return 0, err
	}

	n, err := s.Ratings.ArchiveRatings(ctx, uids, time.Now().Unix())
	if err != nil {
		return 0, err
	}

	places := map[string]bool{}
	for _, r := range affected {
		places[r.PlaceUID] = true
	}

	for uid := range places {
		s.reindexPlace(ctx, uid)
	}

	return n, nil
}

// ArchiveComments soft-archives comments after an authorization check
// requiring role >= Scout.
func (s *Service) ArchiveComments(ctx context.Context, uids []string, actor authz.Actor) (int64, error) {
	if err := authz.Authorize(actor, authz.ActionArchiveRatings, nil); err != nil {
		return 0, err
	}

	return s.Comments.ArchiveComments(ctx, uids, time.Now().Unix())
}

// ChangeUserRole sets target's role after authorizing the actor via
// the role-ordering rule `actor.role > target.role && new < actor.role`.
func (s *Service) ChangeUserRole(ctx context.Context, actor authz.Actor, targetEmail string, newRole domain.Role) error {
	target, err := s.Users.FindUserByEmail(ctx, targetEmail)
	if err != nil {
		return err
	}

	if err := authz.Authorize(actor, authz.ActionChangeUserRole, authz.ChangeUserRoleTarget{
		CurrentRole: target.Role,
		NewRole:     newRole,
	}); err != nil {
		return err
	}

	target.Role = newRole

	return s.Users.UpdateUser(ctx, target)
}

// RegisterUser creates a new, unconfirmed user account and publishes a
// best-effort confirmation-email notification carrying an encoded
// EmailNonce token.
func (s *Service) RegisterUser(ctx context.Context, email, passwordHash, confirmURLBase string) (domain.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrInvalidEmail, email)
	}

	u := domain.User{Email: email, PasswordHash: passwordHash, EmailConfirmed: false, Role: domain.RoleUser}

	if err := s.Users.CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}

	nonce := domain.EmailNonce{Email: email, Nonce: uuid.NewString()}

	if err := s.Users.ReplaceUserToken(ctx, domain.UserToken{
		Email: nonce.Email, Nonce: nonce.Nonce, ExpiresAt: time.Now().Add(72 * time.Hour).Unix(),
	}); err != nil {
		s.Logger.Errorf("command: register user: store confirmation token: %v", err)
	}

	s.Notify.UserRegistered(ctx, u, confirmURLBase+url.QueryEscape(encodeNonce(nonce)))

	return u, nil
}

// HashPassword hashes a plaintext password with bcrypt, grounded on
// the same cost bcrypt.DefaultCost uses across the ecosystem.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash.
func VerifyPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ResetPasswordRequest issues a fresh single-use token for email and
// publishes a best-effort reset-password notification. It always
// succeeds from the caller's perspective even if email does not exist,
// to avoid leaking account existence. For an unknown email no token is
// stored and no notification is published; the request is only logged.
func (s *Service) ResetPasswordRequest(ctx context.Context, email, resetURLBase string) {
	if _, err := s.Users.FindUserByEmail(ctx, email); err != nil {
		s.Logger.Infof("command: reset password requested for unknown email %s", email)
		return
	}

	nonce := domain.EmailNonce{Email: email, Nonce: uuid.NewString()}

	if err := s.Users.ReplaceUserToken(ctx, domain.UserToken{
		Email: nonce.Email, Nonce: nonce.Nonce, ExpiresAt: time.Now().Add(2 * time.Hour).Unix(),
	}); err != nil {
		s.Logger.Errorf("command: reset password request: store token: %v", err)
		return
	}

	s.Notify.UserResetPasswordRequested(ctx, nonce, resetURLBase+url.QueryEscape(encodeNonce(nonce)))
}

// ResetPassword consumes a single-use token and sets the user's
// password hash, failing domain.ErrNotFound if the token does not
// exist or has already been consumed.
func (s *Service) ResetPassword(ctx context.Context, nonce domain.EmailNonce, newPasswordHash string) error {
	tok, err := s.Users.ConsumeUserToken(ctx, nonce)
	if err != nil {
		return err
	}

	if time.Now().Unix() > tok.ExpiresAt {
		return fmt.Errorf("%w: token for %s has expired", domain.ErrInvalidInput, tok.Email)
	}

	u, err := s.Users.FindUserByEmail(ctx, tok.Email)
	if err != nil {
		return err
	}

	u.PasswordHash = newPasswordHash

	return s.Users.UpdateUser(ctx, u)
}

// ConfirmEmail consumes a confirmation token and marks the user's
// email confirmed.
func (s *Service) ConfirmEmail(ctx context.Context, nonce domain.EmailNonce) error {
	tok, err := s.Users.ConsumeUserToken(ctx, nonce)
	if err != nil {
		return err
	}

	u, err := s.Users.FindUserByEmail(ctx, tok.Email)
	if err != nil {
		return err
	}

	u.EmailConfirmed = true

	return s.Users.UpdateUser(ctx, u)
}

// CreateEvent creates a new event.
func (s *Service) CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	if e.UID == "" {
		e.UID = common.GenerateUUIDv7()
	}

	if e.Title == "" {
		return domain.Event{}, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	if err := s.Events.CreateEvent(ctx, e); err != nil {
		return domain.Event{}, err
	}

	return e, nil
}

// UpdateEvent replaces an existing event's mutable fields.
func (s *Service) UpdateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	if _, err := s.Events.GetEvent(ctx, e.UID); err != nil {
		return domain.Event{}, err
	}

	if err := s.Events.UpdateEvent(ctx, e); err != nil {
		return domain.Event{}, err
	}

	return e, nil
}

// ArchiveEvent deletes an event outright: events carry no revision
// history, so archival here is unconditional deletion per the
// component design.
func (s *Service) ArchiveEvent(ctx context.Context, uid string) error {
	return s.Events.DeleteEvent(ctx, uid)
}

func (s *Service) mergedTags(ctx context.Context, tags, categoryIDs []string) ([]string, error) {
	if len(categoryIDs) == 0 {
		return tags, nil
	}

	resolved, err := s.Categories.TagsForCategories(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}

	out := make([]string, 0, len(tags)+len(resolved))

	for _, t := range tags {
		if !seen[t] {
			seen[t] = true

			out = append(out, t)
		}
	}

	for _, tag := range resolved {
		if !seen[tag] {
			seen[tag] = true

			out = append(out, tag)
		}
	}

	return out, nil
}

func (s *Service) notifyPlaceChanged(ctx context.Context, rev domain.PlaceRevision, key string) {
	owners, err := s.Subscriptions.AllSubscriptionsForBbox(ctx, rev.Pos)
	if err != nil {
		s.Logger.Errorf("command: resolve subscribers for %s: %v", rev.PlaceUID, err)
		return
	}

	if len(owners) == 0 {
		return
	}

	allCategories, err := s.Categories.AllCategories(ctx)
	if err != nil {
		s.Logger.Errorf("command: load categories for notification: %v", err)
		allCategories = map[string]string{}
	}

	var categoryNames []string

	for _, tag := range rev.Tags {
		for _, name := range allCategories {
			if name == tag {
				categoryNames = append(categoryNames, name)
			}
		}
	}

	switch key {
	case notify.KeyEntryAdded:
		s.Notify.EntryAdded(ctx, owners, rev, categoryNames)
	case notify.KeyEntryUpdated:
		s.Notify.EntryUpdated(ctx, owners, rev, categoryNames)
	}
}

func symmetricDifference(a, b []string) []string {
	setA := map[string]bool{}
	for _, t := range a {
		setA[t] = true
	}

	setB := map[string]bool{}
	for _, t := range b {
		setB[t] = true
	}

	var out []string

	for t := range setA {
		if !setB[t] {
			out = append(out, t)
		}
	}

	for t := range setB {
		if !setA[t] {
			out = append(out, t)
		}
	}

	return out
}

func encodeNonce(n domain.EmailNonce) string {
	return n.Email + ":" + n.Nonce
}

// DecodeNonce parses the token query parameter produced by
// encodeNonce back into the (email, nonce) pair consumed by
// ResetPassword/ConfirmEmail.
func DecodeNonce(s string) (domain.EmailNonce, error) {
	email, nonce, ok := strings.Cut(s, ":")
	if !ok || email == "" || nonce == "" {
		return domain.EmailNonce{}, fmt.Errorf("%w: malformed token", domain.ErrInvalidInput)
	}

	return domain.EmailNonce{Email: email, Nonce: nonce}, nil
}
