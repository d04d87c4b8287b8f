package in

import (
	"placedir/internal/domain"
	"placedir/internal/services/command"
	"placedir/internal/services/query"
	"placedir/pkg/mlog"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
)

// NewRouter registers every route of the HTTP API over cmdSvc/qrySvc,
// wrapped in the correlation-id/logging/CORS/organization-token
// middleware stack, following the teacher's handler-per-entity layout.
func NewRouter(cmdSvc *command.Service, qrySvc *query.Service, tokens *httpx.TokenIssuer, logger mlog.Logger, confirmURLBase, resetURLBase string) *fiber.App {
	f := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httpx.WithError(c, err)
		},
	})

	f.Use(httpx.WithCorrelationID())
	f.Use(httpx.WithHTTPLogging(httpx.WithCustomLogger(logger)))
	f.Use(httpx.WithCORS())
	f.Use(WithOrganizationToken(cmdSvc, logger))

	f.Get("/health", httpx.Ping)
	f.Get("/version", httpx.Version("v1"))

	places := &PlaceHandler{Command: cmdSvc, Query: qrySvc}
	ratings := &RatingHandler{Command: cmdSvc}
	comments := &CommentHandler{Command: cmdSvc}
	search := &SearchHandler{Query: qrySvc}
	users := &UserHandler{Command: cmdSvc, Tokens: tokens, ConfirmURLBase: confirmURLBase, ResetURLBase: resetURLBase}
	orgs := &OrganizationHandler{Command: cmdSvc}
	subs := &SubscriptionHandler{Command: cmdSvc}
	events := &EventHandler{Command: cmdSvc, Query: qrySvc}
	feed := &FeedHandler{Query: qrySvc}

	v1 := f.Group("/v1")

	v1.Post("/users/register", httpx.WithBody(new(RegisterInput), users.Register))
	v1.Post("/users/login", httpx.WithBody(new(LoginInput), users.Login))
	v1.Post("/users/reset-password-request", httpx.WithBody(new(ResetPasswordRequestInput), users.ResetPasswordRequest))
	v1.Post("/users/reset-password", httpx.WithBody(new(ResetPasswordInput), users.ResetPassword))
	v1.Get("/users/confirm-email", users.ConfirmEmail)

	v1.Get("/places", places.GetPlaces)
	v1.Get("/places/:placeUID/ratings", httpx.ParseUUIDPathParameters, places.RatingsAndComments)
	v1.Get("/search", search.Search)
	v1.Get("/search/global", search.GlobalSearch)
	v1.Get("/feed/recently-changed", feed.RecentlyChanged)
	v1.Get("/feed/tags", feed.MostPopularTags)
	v1.Get("/events", events.EventsForBboxAndTime)

	authed := v1.Group("", tokens.Protect())
	authed.Post("/places", httpx.WithBody(new(CreatePlaceInput), places.CreatePlace))
	authed.Put("/places/:placeUID", httpx.ParseUUIDPathParameters, httpx.WithBody(new(UpdatePlaceInput), places.UpdatePlace))
	authed.Post("/places/:placeUID/ratings", httpx.ParseUUIDPathParameters, httpx.WithBody(new(CreateRatingInput), ratings.CreateRating))
	authed.Post("/ratings/:ratingUID/comments", httpx.ParseUUIDPathParameters, httpx.WithBody(new(CreateCommentInput), comments.CreateComment))
	authed.Post("/subscriptions", httpx.WithBody(new(CreateSubscriptionInput), subs.CreateSubscription))
	authed.Delete("/subscriptions/:subscriptionUID", httpx.ParseUUIDPathParameters, subs.DeleteSubscription)
	authed.Post("/events", httpx.WithBody(new(EventInput), events.CreateEvent))
	authed.Put("/events/:eventUID", httpx.ParseUUIDPathParameters, httpx.WithBody(new(EventInput), events.UpdateEvent))
	authed.Delete("/events/:eventUID", httpx.ParseUUIDPathParameters, events.ArchiveEvent)

	scout := v1.Group("", tokens.Protect(), tokens.WithRole(domain.RoleScout))
	scout.Post("/places/archive", httpx.WithBody(new(ArchiveInput), places.ArchivePlaces))
	scout.Post("/ratings/archive", httpx.WithBody(new(ArchiveInput), ratings.ArchiveRatings))
	scout.Post("/comments/archive", httpx.WithBody(new(ArchiveInput), comments.ArchiveComments))

	admin := v1.Group("", tokens.Protect(), tokens.WithRole(domain.RoleAdmin))
	admin.Post("/organizations", httpx.WithBody(new(CreateOrganizationInput), orgs.CreateOrganization))
	admin.Post("/users/change-role", httpx.WithBody(new(ChangeRoleInput), users.ChangeRole))

	return f
}
