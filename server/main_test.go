package server

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo"
	"github.com/stretchr/testify/assert"

	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/constants"
	analysisType "github.com/helena-bio/helix-frontend-sub000/models/constants/analysis-type"
	assemblyId "github.com/helena-bio/helix-frontend-sub000/models/constants/assembly-id"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/classification"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/impact"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
	"github.com/helena-bio/helix-frontend-sub000/repositories/memory"
)

func newTestApi(t *testing.T) (*echo.Echo, *memory.Repository) {
	tablePath := filepath.Join(t.TempDir(), "genes_to_phenotype.tsv")
	assert.Nil(t, ioutil.WriteFile(tablePath, []byte("SCN1A\tseizure\nBRCA1\tbreast carcinoma\n"), 0644))

	var cfg models.Config
	cfg.Api.VcfPath = filepath.Join(t.TempDir(), "vcfs")
	cfg.Api.PhenotypePath = tablePath
	cfg.Pipeline.PageSize = 2

	repository := memory.New()
	return NewEcho(&cfg, repository), repository
}

func doRequest(e *echo.Echo, method string, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, body)
	if contentType != "" {
		request.Header.Set(echo.HeaderContentType, contentType)
	}
	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, request)
	return recorder
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, fileContents string) (*bytes.Buffer, string) {
	buffer := &bytes.Buffer{}
	writer := multipart.NewWriter(buffer)

	for field, value := range fields {
		assert.Nil(t, writer.WriteField(field, value))
	}
	if fileName != "" {
		part, partErr := writer.CreateFormFile("file", fileName)
		assert.Nil(t, partErr)
		_, writeErr := part.Write([]byte(fileContents))
		assert.Nil(t, writeErr)
	}
	assert.Nil(t, writer.Close())

	return buffer, writer.FormDataContentType()
}

func demoVcfContents() string {
	rows := []string{
		"##fileformat=VCFv4.2",
		"##reference=GRCh38",
		strings.Join([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT", "S-001"}, "\t"),
		strings.Join([]string{"2", "47414420", "rs63750447", "T", "A", "50", "PASS", "GENE=MSH2;CLNSIG=Pathogenic;IMPACT=HIGH", "GT", "0/1"}, "\t"),
		strings.Join([]string{"2", "47414500", ".", "G", "A", "44", "PASS", "GENE=MSH2;CLNSIG=Benign;IMPACT=LOW", "GT", "0/0"}, "\t"),
	}
	return strings.Join(rows, "\n") + "\n"
}

func pollTaskUntilReady(t *testing.T, e *echo.Echo, taskId string) dtos.TaskStatusDto {
	deadline := time.Now().Add(10 * time.Second)
	for {
		recorder := doRequest(e, http.MethodGet, "/tasks/status?taskId="+taskId, nil, "")
		if recorder.Code == http.StatusOK {
			var status dtos.TaskStatusDto
			assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &status))
			if status.Ready {
				return status
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %s never became ready", taskId)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func seedReviewSession(t *testing.T, repository *memory.Repository, sessionId string) {
	saveErr := repository.SaveSession(&repositories.SessionRecord{
		SessionId: sessionId,
		Meta: models.SessionMeta{
			SessionId:  sessionId,
			AssemblyId: assemblyId.GRCh38,
		},
		Summary: models.ProcessingSummary{
			TotalVariants: 6,
			GeneCount:     3,
			Genes: []models.GeneSummary{
				{
					Symbol:          "BRCA1",
					TotalVariants:   2,
					Classifications: map[constants.Classification]int{classification.Pathogenic: 2},
					Impacts:         map[constants.Impact]int{impact.High: 2},
				},
				{
					Symbol:          "MYC",
					TotalVariants:   1,
					Classifications: map[constants.Classification]int{classification.Uncertain: 1},
					Impacts:         map[constants.Impact]int{impact.Moderate: 1},
				},
				{
					Symbol:          "TP53",
					TotalVariants:   3,
					Classifications: map[constants.Classification]int{classification.Benign: 3},
					Impacts:         map[constants.Impact]int{impact.Low: 3},
				},
			},
			CrossMatrix: models.CrossMatrix{
				string(classification.Pathogenic): {High: 2},
				string(classification.Uncertain):  {Moderate: 1},
				string(classification.Benign):     {Low: 3},
				string(classification.All):        {High: 2, Moderate: 1, Low: 3},
			},
		},
		VariantsByGene: map[string][]models.VariantRecord{
			"BRCA1": {
				{Idx: 0, Chrom: "17", Pos: 43045729, Id: "rs80357498", Gene: "BRCA1", Classification: classification.Pathogenic, Impact: impact.High},
				{Idx: 1, Chrom: "17", Pos: 43051071, Id: "none", Gene: "BRCA1", Classification: classification.Pathogenic, Impact: impact.High},
			},
			"MYC": {
				{Idx: 2, Chrom: "8", Pos: 127736069, Id: "none", Gene: "MYC", Classification: classification.Uncertain, Impact: impact.Moderate},
			},
			"TP53": {
				{Idx: 3, Chrom: "17", Pos: 7674220, Id: "rs28934578", Gene: "TP53", Classification: classification.Benign, Impact: impact.Low},
				{Idx: 4, Chrom: "17", Pos: 7674221, Id: "none", Gene: "TP53", Classification: classification.Benign, Impact: impact.Low},
				{Idx: 5, Chrom: "17", Pos: 7674222, Id: "none", Gene: "TP53", Classification: classification.Benign, Impact: impact.Low},
			},
		},
	})
	assert.Nil(t, saveErr)
}

func TestRootAndServiceInfo(t *testing.T) {
	e, _ := newTestApi(t)

	t.Run("should greet on the root route", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Welcome")
	})

	t.Run("should describe the service", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/service-info", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var info map[string]interface{}
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &info))
		assert.Equal(t, "bio.helena:helix", info["id"])
		assert.NotEmpty(t, info["name"])
		assert.NotEmpty(t, info["organization"])
	})
}

func TestVariantsUploadRoute(t *testing.T) {
	e, _ := newTestApi(t)

	t.Run("should stage an uploaded vcf on disk", func(t *testing.T) {
		body, contentType := multipartBody(t,
			map[string]string{"sessionId": "session-u1", "analysisType": "germline"},
			"uploaded.vcf", demoVcfContents())

		recorder := doRequest(e, http.MethodPost, "/variants/upload", body, contentType)
		assert.Equal(t, http.StatusCreated, recorder.Code)

		var uploaded dtos.UploadResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &uploaded))
		assert.NotEmpty(t, uploaded.Id)
		assert.True(t, uploaded.Size > 0)

		storedInfo, statErr := os.Stat(uploaded.FilePath)
		assert.Nil(t, statErr)
		assert.Equal(t, uploaded.Size, storedInfo.Size())
	})

	t.Run("should refuse an upload without a session id", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{}, "uploaded.vcf", demoVcfContents())

		recorder := doRequest(e, http.MethodPost, "/variants/upload", body, contentType)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Missing 'sessionId'")
	})

	t.Run("should refuse an unknown analysis type", func(t *testing.T) {
		body, contentType := multipartBody(t,
			map[string]string{"sessionId": "session-u2", "analysisType": "forensic"},
			"uploaded.vcf", demoVcfContents())

		recorder := doRequest(e, http.MethodPost, "/variants/upload", body, contentType)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Unknown analysisType")
	})

	t.Run("should refuse an unknown assembly id", func(t *testing.T) {
		body, contentType := multipartBody(t,
			map[string]string{"sessionId": "session-u3"},
			"uploaded.vcf", demoVcfContents())

		recorder := doRequest(e, http.MethodPost, "/variants/upload?assemblyId=GRCh99", body, contentType)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Unknown assemblyId!")
	})

	t.Run("should refuse an upload without a file part", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"sessionId": "session-u4"}, "", "")

		recorder := doRequest(e, http.MethodPost, "/variants/upload", body, contentType)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Missing 'file'")
	})
}

func TestSessionEnvelopeSeeding(t *testing.T) {
	e, repository := newTestApi(t)

	body, contentType := multipartBody(t,
		map[string]string{
			"sessionId":    "session-s1",
			"analysisType": "somatic",
			"caseLabel":    "FAM-0042 proband",
			"retain":       "true",
		},
		"uploaded.vcf", demoVcfContents())
	recorder := doRequest(e, http.MethodPost, "/variants/upload", body, contentType)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	var uploaded dtos.UploadResponseDto
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &uploaded))

	t.Run("should register the session envelope at upload time", func(t *testing.T) {
		session, getErr := repository.GetSession("session-s1")
		assert.Nil(t, getErr)
		assert.Equal(t, "FAM-0042 proband", session.Meta.CaseLabel)
		assert.True(t, session.Meta.Retain)
		assert.Equal(t, analysisType.Somatic, session.Meta.AnalysisType)
		assert.Equal(t, "uploaded.vcf", session.Meta.FileName)
	})

	t.Run("should attach the quality report to the session", func(t *testing.T) {
		recorder := doRequest(e, http.MethodPost,
			"/variants/validation/run?sessionId=session-s1&filePath="+uploaded.FilePath, nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var created dtos.TaskCreatedDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &created))
		pollTaskUntilReady(t, e, created.TaskId)

		session, getErr := repository.GetSession("session-s1")
		assert.Nil(t, getErr)
		assert.Equal(t, 2, session.Report.TotalVariants)
		assert.Equal(t, 1, session.Report.SampleCount)
	})

	t.Run("should carry the envelope through processing", func(t *testing.T) {
		recorder := doRequest(e, http.MethodPost,
			"/variants/processing/run?sessionId=session-s1&filePath="+uploaded.FilePath, nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var created dtos.TaskCreatedDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &created))
		pollTaskUntilReady(t, e, created.TaskId)

		session, getErr := repository.GetSession("session-s1")
		assert.Nil(t, getErr)
		assert.Equal(t, "FAM-0042 proband", session.Meta.CaseLabel)
		assert.True(t, session.Meta.Retain)
		assert.Equal(t, analysisType.Somatic, session.Meta.AnalysisType)
		// the file names the build the envelope left unspecified
		assert.Equal(t, assemblyId.GRCh38, session.Meta.AssemblyId)
		// the earlier quality report survives the summary rewrite
		assert.Equal(t, 2, session.Report.TotalVariants)
		assert.Equal(t, 1, session.Summary.GeneCount)
	})
}

func TestAnnotationRoutes(t *testing.T) {
	e, _ := newTestApi(t)

	// stage a file over the upload route first
	body, contentType := multipartBody(t,
		map[string]string{"sessionId": "session-a1"}, "uploaded.vcf", demoVcfContents())
	recorder := doRequest(e, http.MethodPost, "/variants/upload", body, contentType)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	var uploaded dtos.UploadResponseDto
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &uploaded))

	t.Run("should run a validation task to completion", func(t *testing.T) {
		recorder := doRequest(e, http.MethodPost,
			"/variants/validation/run?sessionId=session-a1&filePath="+uploaded.FilePath, nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var created dtos.TaskCreatedDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &created))
		assert.NotEmpty(t, created.TaskId)

		status := pollTaskUntilReady(t, e, created.TaskId)
		assert.True(t, status.Successful)
		assert.False(t, status.Failed)
		assert.Equal(t, float64(2), status.Result["total_variants"])
		assert.Equal(t, float64(1), status.Result["sample_count"])
	})

	t.Run("should run a processing task and serve the results", func(t *testing.T) {
		recorder := doRequest(e, http.MethodPost,
			"/variants/processing/run?sessionId=session-a1&filePath="+uploaded.FilePath, nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var created dtos.TaskCreatedDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &created))

		status := pollTaskUntilReady(t, e, created.TaskId)
		assert.True(t, status.Successful)
		assert.Equal(t, float64(1), status.Result["gene_count"])

		// the processed session is now queryable
		overview := doRequest(e, http.MethodGet, "/variants/overview?sessionId=session-a1", nil, "")
		assert.Equal(t, http.StatusOK, overview.Code)

		var matrixDto dtos.CrossMatrixResponseDto
		assert.Nil(t, json.Unmarshal(overview.Body.Bytes(), &matrixDto))
		assert.Equal(t, 2, matrixDto.Matrix[string(classification.All)].Total())
	})

	t.Run("should refuse to start a task without a session id", func(t *testing.T) {
		recorder := doRequest(e, http.MethodPost,
			"/variants/validation/run?filePath="+uploaded.FilePath, nil, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("should refuse to start a task without a file path", func(t *testing.T) {
		recorder := doRequest(e, http.MethodPost,
			"/variants/validation/run?sessionId=session-a1", nil, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Missing 'filePath'")
	})

	t.Run("should refuse a file path that does not exist", func(t *testing.T) {
		recorder := doRequest(e, http.MethodPost,
			"/variants/validation/run?sessionId=session-a1&filePath=/tmp/definitely-gone.vcf", nil, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "No file found")
	})

	t.Run("should 404 an unknown task id", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/tasks/status?taskId=not-a-task", nil, "")
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("should refuse a status request without a task id", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/tasks/status", nil, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("should list every task request", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/tasks/requests", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var listing []map[string]interface{}
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &listing))
		assert.Equal(t, 2, len(listing))
	})
}

func TestGenesSearchRoute(t *testing.T) {
	e, repository := newTestApi(t)
	seedReviewSession(t, repository, "session-g1")

	t.Run("should page the gene table", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/genes/search?sessionId=session-g1", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var page dtos.GenesResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &page))
		assert.Equal(t, 3, page.TotalGenes)
		assert.Equal(t, 2, page.Count)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, "BRCA1", page.Results[0].Summary.Symbol)
		assert.Equal(t, "MYC", page.Results[1].Summary.Symbol)

		recorder = doRequest(e, http.MethodGet, "/genes/search?sessionId=session-g1&page=2", nil, "")
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &page))
		assert.Equal(t, 1, page.Count)
		assert.Equal(t, "TP53", page.Results[0].Summary.Symbol)
	})

	t.Run("should narrow by symbol substring", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/genes/search?sessionId=session-g1&term=brc", nil, "")

		var page dtos.GenesResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &page))
		assert.Equal(t, 1, page.TotalGenes)
		assert.Equal(t, "BRCA1", page.Results[0].Summary.Symbol)
	})

	t.Run("should reorder by review table columns", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet,
			"/genes/search?sessionId=session-g1&sortBy=total_variants", nil, "")

		var page dtos.GenesResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &page))
		assert.Equal(t, "TP53", page.Results[0].Summary.Symbol)
		assert.Equal(t, "BRCA1", page.Results[1].Summary.Symbol)

		recorder = doRequest(e, http.MethodGet,
			"/genes/search?sessionId=session-g1&sortBy=classification&dir=asc", nil, "")
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &page))
		assert.Equal(t, "TP53", page.Results[0].Summary.Symbol)
	})

	t.Run("should refuse nonsense paging", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/genes/search?sessionId=session-g1&page=0", nil, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)

		recorder = doRequest(e, http.MethodGet, "/genes/search?sessionId=session-g1&pageSize=-5", nil, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("should 404 an unknown session", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/genes/search?sessionId=who-dis", nil, "")
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestVariantReadRoutes(t *testing.T) {
	e, repository := newTestApi(t)
	seedReviewSession(t, repository, "session-r1")

	t.Run("should serve the overview matrix", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/variants/overview?sessionId=session-r1", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var overview dtos.CrossMatrixResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &overview))
		assert.Equal(t, 6, overview.Matrix[string(classification.All)].Total())
		assert.Equal(t, 2, overview.Matrix[string(classification.Pathogenic)].High)
	})

	t.Run("should serve variants by gene, case-insensitively", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet,
			"/variants/get/by/gene?sessionId=session-r1&gene=brca1", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var variants dtos.VariantsResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &variants))
		assert.Equal(t, 2, variants.Count)
		assert.Equal(t, "BRCA1", variants.Results[0].Gene)
	})

	t.Run("should serve an empty list for a gene with no variants", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet,
			"/variants/get/by/gene?sessionId=session-r1&gene=GHOST", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var variants dtos.VariantsResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &variants))
		assert.Equal(t, 0, variants.Count)
	})

	t.Run("should refuse a by-gene request without a gene", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/variants/get/by/gene?sessionId=session-r1", nil, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("should serve a single variant by index", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet,
			"/variants/get/by/idx?sessionId=session-r1&idx=3", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)

		var variants dtos.VariantsResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &variants))
		assert.Equal(t, 1, variants.Count)
		assert.Equal(t, "TP53", variants.Results[0].Gene)
		assert.Equal(t, 3, variants.Results[0].Idx)
	})

	t.Run("should refuse a non-numeric index", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet,
			"/variants/get/by/idx?sessionId=session-r1&idx=three", nil, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("should 404 an index outside the session", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet,
			"/variants/get/by/idx?sessionId=session-r1&idx=99", nil, "")
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("should 404 the overview of an unknown session", func(t *testing.T) {
		recorder := doRequest(e, http.MethodGet, "/variants/overview?sessionId=who-dis", nil, "")
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestPhenotypeMatchingRoute(t *testing.T) {
	e, _ := newTestApi(t)

	t.Run("should score genes against phenotype terms", func(t *testing.T) {
		payload, _ := json.Marshal(dtos.PhenotypeMatchRequestDto{
			Terms: []string{"seizure"},
			Genes: []string{"SCN1A", "BRCA1"},
		})

		recorder := doRequest(e, http.MethodPost, "/phenotype/matching",
			bytes.NewBuffer(payload), echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusOK, recorder.Code)

		var matched dtos.PhenotypeMatchResponseDto
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &matched))
		assert.Equal(t, 1, len(matched.Matches))
		assert.Equal(t, "SCN1A", matched.Matches[0].Gene)
		assert.Equal(t, 1.0, matched.Matches[0].Score)
	})

	t.Run("should refuse an empty term list", func(t *testing.T) {
		payload, _ := json.Marshal(dtos.PhenotypeMatchRequestDto{Genes: []string{"SCN1A"}})

		recorder := doRequest(e, http.MethodPost, "/phenotype/matching",
			bytes.NewBuffer(payload), echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "at least one phenotype term")
	})

	t.Run("should refuse a malformed body", func(t *testing.T) {
		recorder := doRequest(e, http.MethodPost, "/phenotype/matching",
			bytes.NewBufferString("{war-and-peace"), echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}
