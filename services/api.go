package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog"

	"github.com/helena-bio/helix-frontend-sub000/logx"
	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/models/dtos"
	"github.com/helena-bio/helix-frontend-sub000/utils"
)

// ApiService is the review workspace's line to the annotation
// backend: file upload plus the task and results endpoints.
type ApiService struct {
	Config  *models.Config
	Logger  zerolog.Logger
	BaseUrl string

	client *http.Client
}

func NewApiService(cfg *models.Config) *ApiService {
	return &ApiService{
		Config:  cfg,
		Logger:  logx.NewLogger("api", cfg.Debug),
		BaseUrl: cfg.Api.Url,
		client:  &http.Client{},
	}
}

// Upload streams a (usually gzipped) VCF to the backend as multipart
// form data. The file is never buffered in memory: a pipe couples the
// multipart writer to the request body, so tens of gigabytes flow
// through a single chunk-sized buffer. Progress lands on onProgress
// as a running byte count of the source file.
//
// A started transfer runs to completion or failure; there is no
// cancellation path. Transient failures are retried from the top of
// the file.
func (a *ApiService) Upload(filePath string, meta models.SessionMeta, onProgress func(sentBytes int64, totalBytes int64)) (*models.UploadReceipt, error) {
	if onProgress == nil {
		onProgress = func(int64, int64) {}
	}

	sourceInfo, statErr := os.Stat(filePath)
	if statErr != nil {
		return nil, fmt.Errorf("upload failed: cannot stat %s: %v", filePath, statErr)
	}
	totalBytes := sourceInfo.Size()

	var (
		uploadResp      *http.Response
		uploadErr       error
		attemptCount    int = 0
		maxAttempts     int = 3
		waitTimeSeconds int = 3
	)
	for {
		uploadResp, uploadErr = a.attemptUpload(filePath, totalBytes, meta, onProgress)

		// check for errors, possibly try again
		if uploadErr != nil {
			a.Logger.Warn().Err(uploadErr).Str("file", filepath.Base(filePath)).Msg("upload attempt failed")

			if attemptCount < maxAttempts-1 {
				// increment attempt counter
				attemptCount++

				// give it a few seconds break
				time.Sleep(time.Duration(waitTimeSeconds * int(time.Second)))

				a.Logger.Info().Int("attempt", attemptCount+1).Msg("retrying upload from the top of the file")
				continue
			}
			return nil, fmt.Errorf("upload failed after %d attempts: %v", attemptCount+1, uploadErr)
		}
		break
	}
	defer uploadResp.Body.Close()

	responsebody, bodyerr := ioutil.ReadAll(uploadResp.Body)
	if bodyerr != nil {
		return nil, fmt.Errorf("upload failed reading response body: %v", bodyerr)
	}

	jsonParsed, parseErr := gabs.ParseJSON(responsebody)
	if parseErr != nil {
		return nil, fmt.Errorf("upload failed parsing response: %v", parseErr)
	}

	fileId, idOk := jsonParsed.Path("id").Data().(string)
	if !idOk || fileId == "" {
		return nil, fmt.Errorf("upload response carried no file id: %s", string(responsebody))
	}
	remotePath, _ := jsonParsed.Path("file_path").Data().(string)

	a.Logger.Info().
		Str("fileId", fileId).
		Int64("bytes", totalBytes).
		Msg("upload finished")

	return &models.UploadReceipt{
		FileId:    fileId,
		FilePath:  remotePath,
		BytesSent: totalBytes,
	}, nil
}

func (a *ApiService) attemptUpload(filePath string, totalBytes int64, meta models.SessionMeta, onProgress func(sentBytes int64, totalBytes int64)) (*http.Response, error) {
	source, openErr := os.Open(filePath)
	if openErr != nil {
		return nil, openErr
	}

	counting := &utils.CountingReader{Reader: source}

	pipeReader, pipeWriter := io.Pipe()
	multipartWriter := multipart.NewWriter(pipeWriter)

	go func() {
		defer source.Close()
		defer pipeWriter.Close()

		for field, value := range map[string]string{
			"sessionId":    meta.SessionId,
			"fileName":     meta.FileName,
			"analysisType": string(meta.AnalysisType),
			"assemblyId":   string(meta.AssemblyId),
			"caseLabel":    meta.CaseLabel,
			"retain":       strconv.FormatBool(meta.Retain),
		} {
			if fieldErr := multipartWriter.WriteField(field, value); fieldErr != nil {
				pipeWriter.CloseWithError(fieldErr)
				return
			}
		}

		part, partErr := multipartWriter.CreateFormFile("file", filepath.Base(filePath))
		if partErr != nil {
			pipeWriter.CloseWithError(partErr)
			return
		}

		buffer := make([]byte, a.Config.Pipeline.UploadChunkBytes)
		if _, copyErr := io.CopyBuffer(part, counting, buffer); copyErr != nil {
			pipeWriter.CloseWithError(copyErr)
			return
		}

		pipeWriter.CloseWithError(multipartWriter.Close())
	}()

	// report transfer progress until the request returns
	progressDone := make(chan struct{})
	progressExited := make(chan struct{})
	go func() {
		defer close(progressExited)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-progressDone:
				onProgress(counting.Count(), totalBytes)
				return
			case <-ticker.C:
				onProgress(counting.Count(), totalBytes)
			}
		}
	}()

	request, _ := http.NewRequest("POST", a.BaseUrl+"/variants/upload", pipeReader)
	request.Header.Add("Content-Type", multipartWriter.FormDataContentType())

	response, doErr := a.client.Do(request)

	// no progress callbacks may trail past this point
	close(progressDone)
	<-progressExited

	if doErr != nil {
		return nil, doErr
	}

	if response.StatusCode != 200 && response.StatusCode != 201 {
		failedAttemptResponseBody, _ := ioutil.ReadAll(response.Body)
		response.Body.Close()
		return nil, fmt.Errorf("upload rejected with status %d: %s", response.StatusCode, string(failedAttemptResponseBody))
	}

	return response, nil
}

// RunValidation asks the backend to start a validation pass over an
// uploaded file and returns the created task id.
func (a *ApiService) RunValidation(sessionId string, filePath string) (string, error) {
	return a.startTask("/variants/validation/run", sessionId, filePath)
}

// RunProcessing asks the backend to start the annotation pass and
// returns the created task id.
func (a *ApiService) RunProcessing(sessionId string, filePath string) (string, error) {
	return a.startTask("/variants/processing/run", sessionId, filePath)
}

func (a *ApiService) startTask(route string, sessionId string, filePath string) (string, error) {
	query := url.Values{}
	query.Add("sessionId", sessionId)
	query.Add("filePath", filePath)

	requestUrl := a.BaseUrl + route + "?" + query.Encode()

	// transient failures back off exponentially; a 4xx will not improve
	// on a second ask, so it aborts the retries
	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.InitialInterval = 250 * time.Millisecond

	var responsebody []byte
	retryErr := backoff.Retry(func() error {
		request, _ := http.NewRequest("POST", requestUrl, nil)

		response, doErr := a.client.Do(request)
		if doErr != nil {
			a.Logger.Warn().Err(doErr).Str("route", route).Msg("task start attempt failed")
			return doErr
		}
		defer response.Body.Close()

		body, bodyerr := ioutil.ReadAll(response.Body)
		if bodyerr != nil {
			return bodyerr
		}

		if response.StatusCode != 200 && response.StatusCode != 201 {
			rejection := fmt.Errorf("task start rejected with status %d: %s", response.StatusCode, string(body))
			if response.StatusCode >= 400 && response.StatusCode < 500 {
				return backoff.Permanent(rejection)
			}
			return rejection
		}

		responsebody = body
		return nil
	}, backoff.WithMaxRetries(retryPolicy, 3))
	if retryErr != nil {
		return "", fmt.Errorf("failed to start task at %s: %v", route, retryErr)
	}

	jsonParsed, parseErr := gabs.ParseJSON(responsebody)
	if parseErr != nil {
		return "", fmt.Errorf("failed parsing task response: %v", parseErr)
	}

	taskId, ok := jsonParsed.Path("task_id").Data().(string)
	if !ok || taskId == "" {
		return "", fmt.Errorf("task response carried no task id: %s", string(responsebody))
	}

	return taskId, nil
}

func (a *ApiService) FetchTaskStatus(taskId string) (*dtos.TaskStatusDto, error) {
	status, err := utils.GetRequestReturnStuff[dtos.TaskStatusDto](
		fmt.Sprintf("%s/tasks/status?taskId=%s", a.BaseUrl, url.QueryEscape(taskId)))
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (a *ApiService) SearchGenes(sessionId string, term string, page int, pageSize int, sortBy string, dir string) (*dtos.GenesResponseDto, error) {
	query := url.Values{}
	query.Add("sessionId", sessionId)
	query.Add("term", term)
	query.Add("page", fmt.Sprint(page))
	query.Add("pageSize", fmt.Sprint(pageSize))
	query.Add("sortBy", sortBy)
	query.Add("dir", dir)

	genes, err := utils.GetRequestReturnStuff[dtos.GenesResponseDto](
		fmt.Sprintf("%s/genes/search?%s", a.BaseUrl, query.Encode()))
	if err != nil {
		return nil, err
	}
	return &genes, nil
}

func (a *ApiService) FetchGeneVariants(sessionId string, gene string) (*dtos.VariantsResponseDto, error) {
	query := url.Values{}
	query.Add("sessionId", sessionId)
	query.Add("gene", gene)

	variants, err := utils.GetRequestReturnStuff[dtos.VariantsResponseDto](
		fmt.Sprintf("%s/variants/get/by/gene?%s", a.BaseUrl, query.Encode()))
	if err != nil {
		return nil, err
	}
	return &variants, nil
}

// FetchVariantByIdx retrieves a single variant by its stable index
// within the session's annotated set.
func (a *ApiService) FetchVariantByIdx(sessionId string, idx int) (*models.VariantRecord, error) {
	query := url.Values{}
	query.Add("sessionId", sessionId)
	query.Add("idx", fmt.Sprint(idx))

	response, err := utils.GetRequestReturnStuff[dtos.VariantsResponseDto](
		fmt.Sprintf("%s/variants/get/by/idx?%s", a.BaseUrl, query.Encode()))
	if err != nil {
		return nil, err
	}
	if len(response.Results) == 0 {
		return nil, fmt.Errorf("no variant with idx %d in session %s", idx, sessionId)
	}
	return &response.Results[0], nil
}

func (a *ApiService) FetchOverview(sessionId string) (*dtos.CrossMatrixResponseDto, error) {
	overview, err := utils.GetRequestReturnStuff[dtos.CrossMatrixResponseDto](
		fmt.Sprintf("%s/variants/overview?sessionId=%s", a.BaseUrl, url.QueryEscape(sessionId)))
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

func (a *ApiService) MatchPhenotypes(terms []string, genes []string) (*dtos.PhenotypeMatchResponseDto, error) {
	payload, _ := json.Marshal(dtos.PhenotypeMatchRequestDto{Terms: terms, Genes: genes})

	request, _ := http.NewRequest("POST", a.BaseUrl+"/phenotype/matching", bytes.NewBuffer(payload))
	request.Header.Add("Content-Type", "application/json")

	response, doErr := a.client.Do(request)
	if doErr != nil {
		return nil, fmt.Errorf("phenotype matching request failed: %v", doErr)
	}
	defer response.Body.Close()

	if response.StatusCode != 200 {
		return nil, fmt.Errorf("phenotype matching rejected with status %d", response.StatusCode)
	}

	var matches dtos.PhenotypeMatchResponseDto
	if jsonErr := json.NewDecoder(response.Body).Decode(&matches); jsonErr != nil {
		return nil, jsonErr
	}

	return &matches, nil
}

func (a *ApiService) FetchServiceInfo() (map[string]interface{}, error) {
	return utils.GetRequestReturnStuff[map[string]interface{}](a.BaseUrl + "/service-info")
}
