package assignments

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/washfold-backend/api/controllers/orders"
	"github.com/angelmondragon/washfold-backend/api/middleware"
	"github.com/angelmondragon/washfold-backend/api/responses"
	"github.com/angelmondragon/washfold-backend/api/validators"
	internalassignments "github.com/angelmondragon/washfold-backend/internal/assignments"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

type assignRequest struct {
	AgentID uuid.UUID `json:"agent_id" validate:"required"`
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type agentAction func(ctx context.Context, assignmentID, agentUserID uuid.UUID, r *http.Request) (*internalassignments.View, error)

// AgentList returns the caller's assignments, optionally filtered by ?status=.
func AgentList(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignments service unavailable"))
			return
		}
		userID, err := middleware.UserUUIDFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.AssignmentStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseAssignmentStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		views, err := svc.ListForAgent(r.Context(), userID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

func Accept(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return agentHandler(svc, logg, func(ctx context.Context, assignmentID, agentUserID uuid.UUID, _ *http.Request) (*internalassignments.View, error) {
		return svc.Accept(ctx, assignmentID, agentUserID)
	})
}

// Reject declines an assignment. The reason body is optional.
func Reject(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return agentHandler(svc, logg, func(ctx context.Context, assignmentID, agentUserID uuid.UUID, r *http.Request) (*internalassignments.View, error) {
		var body rejectRequest
		if r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				return nil, err
			}
		}
		return svc.Reject(ctx, assignmentID, agentUserID, strings.TrimSpace(body.Reason))
	})
}

func CompletePickup(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return agentHandler(svc, logg, func(ctx context.Context, assignmentID, agentUserID uuid.UUID, _ *http.Request) (*internalassignments.View, error) {
		return svc.CompletePickup(ctx, assignmentID, agentUserID)
	})
}

func CompleteDelivery(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return agentHandler(svc, logg, func(ctx context.Context, assignmentID, agentUserID uuid.UUID, _ *http.Request) (*internalassignments.View, error) {
		return svc.CompleteDelivery(ctx, assignmentID, agentUserID)
	})
}

func agentHandler(svc internalassignments.Service, logg *logger.Logger, action agentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignments service unavailable"))
			return
		}
		userID, err := middleware.UserUUIDFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignmentID, err := validators.ParseUUIDParam(r, "assignmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := action(r.Context(), assignmentID, userID, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AdminAssignPickup hands the pickup leg of an order to an approved agent.
func AdminAssignPickup(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return adminAssign(svc, logg, enums.AssignmentTypePickup)
}

// AdminAssignDelivery hands the delivery leg of an order to an approved agent.
func AdminAssignDelivery(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return adminAssign(svc, logg, enums.AssignmentTypeDelivery)
}

func adminAssign(svc internalassignments.Service, logg *logger.Logger, leg enums.AssignmentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignments service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := orders.ActorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var view *internalassignments.View
		if leg == enums.AssignmentTypeDelivery {
			view, err = svc.AssignDelivery(r.Context(), orderID, body.AgentID, actor)
		} else {
			view, err = svc.AssignPickup(r.Context(), orderID, body.AgentID, actor)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func AdminListForOrder(svc internalassignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignments service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.ListForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}
