package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
	gam "github.com/helena-bio/helix-frontend-sub000/middleware"
	"github.com/helena-bio/helix-frontend-sub000/models"
	serviceInfoConsts "github.com/helena-bio/helix-frontend-sub000/models/constants/service-info"
	genesMvc "github.com/helena-bio/helix-frontend-sub000/mvc/genes"
	phenotypeMvc "github.com/helena-bio/helix-frontend-sub000/mvc/phenotype"
	serviceInfoMvc "github.com/helena-bio/helix-frontend-sub000/mvc/service-info"
	tasksMvc "github.com/helena-bio/helix-frontend-sub000/mvc/tasks"
	variantsMvc "github.com/helena-bio/helix-frontend-sub000/mvc/variants"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
	"github.com/helena-bio/helix-frontend-sub000/services"
	"github.com/helena-bio/helix-frontend-sub000/services/phenotype"
)

// NewEcho wires the annotation API onto an echo instance, leaving it
// to the caller to start listening.
func NewEcho(cfg *models.Config, repository repositories.SessionRepository) *echo.Echo {
	// Instantiate Server
	e := echo.New()

	// Service Singletons
	az := services.NewAnnotationService(repository, cfg)
	ms := phenotype.NewMatchingService(cfg)

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
	}))

	// -- Override handlers with "custom Helix" context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.HelixContext{
				Context:           c,
				Config:            cfg,
				Repository:        repository,
				AnnotationService: az,
				MatchingService:   ms,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", func(c echo.Context) error {
		fmt.Printf("[%s] - Root hit!\n", time.Now())
		return c.JSON(http.StatusOK, serviceInfoConsts.SERVICE_WELCOME)
	})

	// -- Service Info
	e.GET("/service-info", serviceInfoMvc.GetServiceInfo)

	// -- Variants
	e.POST("/variants/upload", variantsMvc.VariantsUpload,
		// middleware
		gam.ValidateOptionalAssemblyIdAttribute)
	e.POST("/variants/validation/run", variantsMvc.VariantsValidationRun,
		// middleware
		gam.MandateSessionIdAttribute)
	e.POST("/variants/processing/run", variantsMvc.VariantsProcessingRun,
		// middleware
		gam.MandateSessionIdAttribute)
	e.GET("/variants/overview", variantsMvc.GetVariantsOverview,
		// middleware
		gam.MandateSessionIdAttribute)
	e.GET("/variants/get/by/gene", variantsMvc.VariantsGetByGene,
		// middleware
		gam.MandateSessionIdAttribute,
		gam.MandateGeneAttribute)
	e.GET("/variants/get/by/idx", variantsMvc.VariantsGetByIdx,
		// middleware
		gam.MandateSessionIdAttribute)

	// -- Genes
	e.GET("/genes/search", genesMvc.GenesSearch,
		// middleware
		gam.MandateSessionIdAttribute,
		gam.CalibrateOptionalPagingAttributes)

	// -- Tasks
	e.GET("/tasks/status", tasksMvc.TasksGetStatus,
		// middleware
		gam.MandateTaskIdAttribute)
	e.GET("/tasks/requests", tasksMvc.GetAllTaskRequests)

	// -- Phenotype
	e.POST("/phenotype/matching", phenotypeMvc.PhenotypeMatching)

	return e
}
