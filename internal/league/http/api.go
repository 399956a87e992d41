package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/linksdk"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

// maxLinkTTLSeconds caps caller supplied lifetimes at two years.
const maxLinkTTLSeconds = 2 * 365 * 24 * 60 * 60

// IssueLinkHandler serves POST /v1/links for the outbound email job.
type IssueLinkHandler struct {
	Issuer *service.LinkIssuer
}

func (h *IssueLinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req linksdk.IssueLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		linksdk.NewAPIError(http.StatusBadRequest, linksdk.ErrorCodeInvalidRequest, "Invalid JSON body").WriteError(w)
		return
	}
	if req.TTLSeconds < 0 || req.TTLSeconds > maxLinkTTLSeconds {
		linksdk.NewAPIError(http.StatusBadRequest, linksdk.ErrorCodeInvalidRequest, "ttl_seconds must be between 0 and 63072000").WriteError(w)
		return
	}

	link, err := h.Issuer.Issue(ctx, linkx.Kind(req.Action), req.SubjectID, time.Duration(req.TTLSeconds)*time.Second, req.Extra)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSubject):
			linksdk.ErrInvalidSubject.WriteError(w)
		case errors.Is(err, service.ErrInvalidAction):
			linksdk.ErrInvalidAction.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("failed to issue link", "err", err)
			linksdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, linksdk.IssueLinkResponse{
		URL:       link.URL,
		ExpiresAt: link.ExpiresAt.Unix(),
	})
}

// RSVPTokenHandler serves POST /v1/rsvp-tokens.
type RSVPTokenHandler struct {
	Tokens *service.RSVPTokenService
}

func (h *RSVPTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req linksdk.RSVPTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		linksdk.NewAPIError(http.StatusBadRequest, linksdk.ErrorCodeInvalidRequest, "Invalid JSON body").WriteError(w)
		return
	}
	if req.EventID == "" {
		linksdk.NewAPIError(http.StatusBadRequest, linksdk.ErrorCodeInvalidRequest, "event_id is required").WriteError(w)
		return
	}

	minted, err := h.Tokens.Mint(ctx, req.EventID, req.MemberID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSubject):
			linksdk.ErrInvalidSubject.WriteError(w)
		case errors.Is(err, service.ErrReferentMissing):
			linksdk.ErrNotFound.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("failed to mint rsvp token", "err", err)
			linksdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, linksdk.RSVPTokenResponse{
		URL:       minted.URL,
		ExpiresAt: minted.ExpiresAt.Unix(),
	})
}

// CreateEventHandler serves POST /v1/events.
type CreateEventHandler struct {
	Events *service.EventService
}

func (h *CreateEventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req linksdk.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		linksdk.NewAPIError(http.StatusBadRequest, linksdk.ErrorCodeInvalidRequest, "Invalid JSON body").WriteError(w)
		return
	}

	ev, err := h.Events.Create(ctx, service.NewEvent{
		Title:    req.Title,
		StartsAt: req.StartsAt,
		Capacity: req.Capacity,
		ParentID: req.ParentID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			linksdk.NewAPIError(http.StatusBadRequest, linksdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		case errors.Is(err, service.ErrReferentMissing):
			linksdk.ErrNotFound.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("failed to create event", "err", err)
			linksdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, linksdk.CreateEventResponse{ID: ev.ID})
}
