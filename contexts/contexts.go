package contexts

import (
	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/constants"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
	"github.com/helena-bio/helix-frontend-sub000/services"
	"github.com/helena-bio/helix-frontend-sub000/services/phenotype"
)

type (
	// "Helper" Context to pass into routes that need
	//  the session repository and other global singletons
	HelixContext struct {
		echo.Context
		Config            *models.Config
		Repository        repositories.SessionRepository
		AnnotationService *services.AnnotationService
		MatchingService   *phenotype.MatchingService

		// per-request attributes calibrated by middleware
		SessionId  string
		Gene       string
		AssemblyId constants.AssemblyId
		Page       int
		PageSize   int
	}
)
