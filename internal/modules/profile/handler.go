package profile

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/matrimony-api/internal/contextx"
	"github.com/delordemm1/matrimony-api/internal/httpx"
)

// Handler holds the dependencies for the profile module's HTTP handlers.
type Handler struct {
	service Service
	logger  *slog.Logger
	auth    func(huma.Context, func(huma.Context))
}

// NewHandler creates a new handler for the profile module.
func NewHandler(service Service, logger *slog.Logger, auth func(huma.Context, func(huma.Context))) *Handler {
	return &Handler{service: service, logger: logger, auth: auth}
}

// RegisterRoutes sets up the routing for the profile module. Every route
// requires a signed-in account.
func (h *Handler) RegisterRoutes(api huma.API) {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "profile-view",
		Method:      http.MethodGet,
		Path:        "/profiles/{accountId}",
		Summary:     "View a profile",
		Tags:        []string{"profiles"},
		Security:    bearer,
		Middlewares: huma.Middlewares{h.auth},
	}, h.ViewHandler)

	huma.Register(api, huma.Operation{
		OperationID: "profile-send-interest",
		Method:      http.MethodPost,
		Path:        "/profiles/{accountId}/interest",
		Summary:     "Send interest to a profile",
		Tags:        []string{"profiles"},
		Security:    bearer,
		Middlewares: huma.Middlewares{h.auth},
	}, h.SendInterestHandler)
}

// --- DTOs ---

type ProfileRequest struct {
	AccountID string `path:"accountId" format:"uuid"`
}

type ProfileResponse struct {
	Body struct {
		AccountID   string    `json:"accountId"`
		DisplayName string    `json:"displayName"`
		PhotoURL    string    `json:"photoUrl,omitempty"`
		Bio         string    `json:"bio,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}
}

type InterestResponse struct {
	Status int
	Body   struct {
		Created bool `json:"created"`
	}
}

// --- Handlers ---

// ViewHandler returns a profile, subject to the viewer's profile-view budget.
func (h *Handler) ViewHandler(ctx context.Context, input *ProfileRequest) (*ProfileResponse, error) {
	viewerID, ok := contextx.AccountID(ctx)
	if !ok {
		return nil, httpx.UnauthorizedProblem(ctx, "")
	}

	p, err := h.service.View(ctx, viewerID, input.AccountID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &ProfileResponse{}
	resp.Body.AccountID = p.AccountID
	resp.Body.DisplayName = p.DisplayName
	if p.PhotoURL != nil {
		resp.Body.PhotoURL = *p.PhotoURL
	}
	if p.Bio != nil {
		resp.Body.Bio = *p.Bio
	}
	resp.Body.CreatedAt = p.CreatedAt
	return resp, nil
}

// SendInterestHandler records interest. A repeat for the same pair answers
// 200 instead of 201.
func (h *Handler) SendInterestHandler(ctx context.Context, input *ProfileRequest) (*InterestResponse, error) {
	fromID, ok := contextx.AccountID(ctx)
	if !ok {
		return nil, httpx.UnauthorizedProblem(ctx, "")
	}

	created, err := h.service.SendInterest(ctx, fromID, input.AccountID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &InterestResponse{Status: http.StatusOK}
	if created {
		resp.Status = http.StatusCreated
	}
	resp.Body.Created = created
	return resp, nil
}
