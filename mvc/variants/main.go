package variants

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/constants"
	analysisType "github.com/helena-bio/helix-frontend-sub000/models/constants/analysis-type"
	taskKind "github.com/helena-bio/helix-frontend-sub000/models/constants/task-kind"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	serverErrors "github.com/helena-bio/helix-frontend-sub000/models/dtos/errors"
	"github.com/helena-bio/helix-frontend-sub000/mvc"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
)

// VariantsUpload receives a (possibly gzipped) vcf as a multipart form
// and stages it on disk for the validation and processing tasks.
func VariantsUpload(c echo.Context) error {
	fmt.Printf("[%s] - VariantsUpload hit!\n", time.Now())
	gc := c.(*contexts.HelixContext)
	cfg := gc.Config

	// the upload carries its session metadata as form values
	sessionId := c.FormValue("sessionId")
	if len(sessionId) == 0 {
		return c.JSON(http.StatusBadRequest, serverErrors.CreateSimpleBadRequest("Missing 'sessionId' form value!"))
	}

	if analysisTypeFV := c.FormValue("analysisType"); len(analysisTypeFV) > 0 {
		if !analysisType.IsKnownAnalysisType(analysisTypeFV) {
			return c.JSON(http.StatusBadRequest, serverErrors.CreateSimpleBadRequest(
				fmt.Sprintf("Unknown analysisType '%s' !", analysisTypeFV)))
		}
	}

	fileHeader, ffErr := c.FormFile("file")
	if ffErr != nil {
		return c.JSON(http.StatusBadRequest, serverErrors.CreateSimpleBadRequest("Missing 'file' form field!"))
	}

	source, openErr := fileHeader.Open()
	if openErr != nil {
		return c.JSON(http.StatusInternalServerError, serverErrors.CreateSimpleInternalServerError(
			fmt.Sprintf("Could not open upload %s !", fileHeader.Filename)))
	}
	defer source.Close()

	if mkdirErr := os.MkdirAll(cfg.Api.VcfPath, 0700); mkdirErr != nil {
		return c.JSON(http.StatusInternalServerError, serverErrors.CreateSimpleInternalServerError(
			fmt.Sprintf("Could not prepare vcf directory at %s !", cfg.Api.VcfPath)))
	}

	// strip any client-side directory components from the upload name
	fileId := uuid.New().String()
	destinationPath := fmt.Sprintf("%s/%s-%s", cfg.Api.VcfPath, fileId, path.Base(fileHeader.Filename))

	destination, createErr := os.Create(destinationPath)
	if createErr != nil {
		return c.JSON(http.StatusInternalServerError, serverErrors.CreateSimpleInternalServerError(
			fmt.Sprintf("Could not create %s !", destinationPath)))
	}
	defer destination.Close()

	written, copyErr := io.Copy(destination, source)
	if copyErr != nil {
		os.Remove(destinationPath)
		return c.JSON(http.StatusInternalServerError, serverErrors.CreateSimpleInternalServerError(
			fmt.Sprintf("Writing %s failed partway through !", destinationPath)))
	}

	// seed the session envelope right away, so the sanitation job can
	// see abandoned uploads and the processing task can inherit the
	// declared metadata
	retain := false
	if retainFV := c.FormValue("retain"); len(retainFV) > 0 {
		retain, _ = strconv.ParseBool(retainFV)
	}
	seedErr := gc.Repository.SaveSession(&repositories.SessionRecord{
		SessionId: sessionId,
		Meta: models.SessionMeta{
			SessionId:    sessionId,
			FileName:     path.Base(fileHeader.Filename),
			AnalysisType: analysisType.CastToAnalysisType(c.FormValue("analysisType")),
			AssemblyId:   gc.AssemblyId,
			CaseLabel:    c.FormValue("caseLabel"),
			Retain:       retain,
		},
	})
	if seedErr != nil {
		os.Remove(destinationPath)
		return c.JSON(http.StatusInternalServerError, serverErrors.CreateSimpleInternalServerError(
			fmt.Sprintf("Could not register session %s !", sessionId)))
	}

	fmt.Printf("Stored %s (%d bytes) for session %s\n", destinationPath, written, sessionId)

	return c.JSON(http.StatusCreated, dtos.UploadResponseDto{
		Id:       fileId,
		FilePath: destinationPath,
		Size:     written,
	})
}

func VariantsValidationRun(c echo.Context) error {
	fmt.Printf("[%s] - VariantsValidationRun hit!\n", time.Now())
	return runAnnotationTask(c, taskKind.Validation)
}

func VariantsProcessingRun(c echo.Context) error {
	fmt.Printf("[%s] - VariantsProcessingRun hit!\n", time.Now())
	return runAnnotationTask(c, taskKind.Processing)
}

func runAnnotationTask(c echo.Context, kind constants.TaskKind) error {
	_, _, annotationService, sessionId := mvc.RetrieveCommonElements(c)

	filePath := c.QueryParam("filePath")
	if len(filePath) == 0 {
		return c.JSON(http.StatusBadRequest, serverErrors.CreateSimpleBadRequest("Missing 'filePath' query parameter!"))
	}
	if _, statErr := os.Stat(filePath); statErr != nil {
		return c.JSON(http.StatusBadRequest, serverErrors.CreateSimpleBadRequest(
			fmt.Sprintf("No file found at %s !", filePath)))
	}

	task := annotationService.CreateTask(sessionId, kind, filePath)

	return c.JSON(http.StatusOK, dtos.TaskCreatedDto{TaskId: task.Id.String()})
}

// GetVariantsOverview serves the classification-by-impact cross matrix
// of an annotated session.
func GetVariantsOverview(c echo.Context) error {
	fmt.Printf("[%s] - GetVariantsOverview hit!\n", time.Now())
	_, repository, _, sessionId := mvc.RetrieveCommonElements(c)

	session, getErr := repository.GetSession(sessionId)
	if getErr != nil {
		return c.JSON(http.StatusNotFound, serverErrors.CreateSimpleNotFound(
			fmt.Sprintf("No annotated session found for id %s", sessionId)))
	}

	return c.JSON(http.StatusOK, dtos.CrossMatrixResponseDto{
		Status:  200,
		Message: "Success",
		Matrix:  session.Summary.CrossMatrix,
	})
}

func VariantsGetByGene(c echo.Context) error {
	fmt.Printf("[%s] - VariantsGetByGene hit!\n", time.Now())
	gc := c.(*contexts.HelixContext)
	_, repository, _, sessionId := mvc.RetrieveCommonElements(c)

	records, getErr := repository.GetGeneVariants(sessionId, gc.Gene)
	if getErr != nil {
		return c.JSON(http.StatusNotFound, serverErrors.CreateSimpleNotFound(
			fmt.Sprintf("No annotated session found for id %s", sessionId)))
	}

	fmt.Printf("Found %d docs!\n", len(records))

	return c.JSON(http.StatusOK, dtos.VariantsResponseDto{
		Status:  200,
		Message: "Success",
		Count:   len(records),
		Results: records,
	})
}

func VariantsGetByIdx(c echo.Context) error {
	fmt.Printf("[%s] - VariantsGetByIdx hit!\n", time.Now())
	_, repository, _, sessionId := mvc.RetrieveCommonElements(c)

	idx, conversionErr := strconv.Atoi(c.QueryParam("idx"))
	if conversionErr != nil {
		return c.JSON(http.StatusBadRequest, serverErrors.CreateSimpleBadRequest("Error converting 'idx' query parameter! Check your input"))
	}

	record, getErr := repository.GetVariantByIdx(sessionId, idx)
	if getErr != nil {
		return c.JSON(http.StatusNotFound, serverErrors.CreateSimpleNotFound(getErr.Error()))
	}

	return c.JSON(http.StatusOK, dtos.VariantsResponseDto{
		Status:  200,
		Message: "Success",
		Count:   1,
		Results: []models.VariantRecord{*record},
	})
}
