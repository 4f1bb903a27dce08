package mvc

import (
	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
	"github.com/helena-bio/helix-frontend-sub000/services"
)

func RetrieveCommonElements(c echo.Context) (*models.Config, repositories.SessionRepository, *services.AnnotationService, string) {
	gc := c.(*contexts.HelixContext)

	cfg := gc.Config
	repository := gc.Repository
	annotationService := gc.AnnotationService

	// sessionId is calibrated by middleware on the routes that mandate it,
	// and comes back empty everywhere else
	sessionId := gc.SessionId

	return cfg, repository, annotationService, sessionId
}
