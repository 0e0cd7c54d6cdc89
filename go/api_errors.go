package bookdistserver

import (
	"errors"

	"github.com/gin-gonic/gin"

	catalogapp "github.com/Apurer/book-distribution-api/internal/domains/catalog/application"
	catalogports "github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	userapp "github.com/Apurer/book-distribution-api/internal/domains/users/application"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"
	apierrors "github.com/Apurer/book-distribution-api/internal/shared/errors"
)

var responder = apierrors.NewResponder([]apierrors.ErrorMapper{
	operationProblem,
	apierrors.MapSentinels(
		apierrors.Sentinel{Err: userapp.ErrInvalidInput, Problem: apierrors.ErrValidation},
		apierrors.Sentinel{Err: userapp.ErrAuthentication, Problem: apierrors.ErrUnauthorized},
		apierrors.Sentinel{Err: userapp.ErrConflict, Problem: apierrors.ErrConflict},
		apierrors.Sentinel{Err: userports.ErrNotFound, Problem: apierrors.ErrNotFound},
	),
	apierrors.MapSentinels(
		apierrors.Sentinel{Err: catalogapp.ErrInvalidInput, Problem: apierrors.ErrValidation},
		apierrors.Sentinel{Err: catalogapp.ErrConflict, Problem: apierrors.ErrConflict},
		apierrors.Sentinel{Err: catalogports.ErrNotFound, Problem: apierrors.ErrNotFound},
	),
})

// respondProblem maps a ProblemDetail through the shared responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	responder.Respond(c, problem)
}

// respondError maps service errors of any bounded context to problem details.
func respondError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func badRequest(c *gin.Context, detail string) {
	respondProblem(c, apierrors.ErrBadRequest.WithDetail(detail))
}

func operationProblem(err error) (apierrors.ProblemDetail, bool) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		notFound   *domain.NotFoundError
		forbidden  *domain.ForbiddenError
	)
	switch {
	case errors.As(err, &validation):
		return apierrors.NewValidationProblem(validation.Field, validation.Messages, itemsOrNil(validation.Items)), true
	case errors.As(err, &conflict):
		return apierrors.NewConflictProblem(conflict.Reason, itemsOrNil(conflict.Items)), true
	case errors.As(err, &notFound):
		return apierrors.NewNotFoundProblem(notFound.Entity, notFound.ID), true
	case errors.As(err, &forbidden):
		return apierrors.ErrForbidden.WithDetail(forbidden.Reason), true
	}
	return apierrors.ProblemDetail{}, false
}

// itemsOrNil keeps an empty item list out of the problem extensions.
func itemsOrNil(items []domain.ItemProblem) any {
	if len(items) == 0 {
		return nil
	}
	return items
}
