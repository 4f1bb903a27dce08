package elasticsearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esutil"
	"github.com/mitchellh/mapstructure"

	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
	"github.com/helena-bio/helix-frontend-sub000/utils"
)

const sessionsIndex = "helix-sessions"
const variantsIndex = "helix-variants"

// variantDocument is a VariantRecord denormalized with its session
// so one flat index serves every per-gene lookup.
type variantDocument struct {
	models.VariantRecord
	SessionId string `json:"sessionId"`
}

// Repository persists sessions to an Elasticsearch cluster. Session
// summaries live in one document apiece; variants are bulk-indexed
// into a flat index keyed by session and gene.
type Repository struct {
	Config *models.Config
	Client *es7.Client
}

func New(cfg *models.Config, client *es7.Client) *Repository {
	if cfg.Debug {
		http.DefaultTransport.(*http.Transport).TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Repository{
		Config: cfg,
		Client: client,
	}
}

func (r *Repository) SaveSession(record *repositories.SessionRecord) error {
	if record.SessionId == "" {
		return fmt.Errorf("refusing to save a session without an id")
	}

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	// session document goes up without the variant lists
	sessionDoc := *record
	sessionDoc.VariantsByGene = nil

	sessionData, marshallErr := json.Marshal(sessionDoc)
	if marshallErr != nil {
		return fmt.Errorf("cannot encode session %s: %v", record.SessionId, marshallErr)
	}

	indexRes, indexErr := r.Client.Index(
		sessionsIndex,
		bytes.NewReader(sessionData),
		r.Client.Index.WithDocumentID(record.SessionId),
		r.Client.Index.WithContext(context.Background()),
		r.Client.Index.WithRefresh("true"),
	)
	if indexErr != nil {
		return fmt.Errorf("failed indexing session %s: %v", record.SessionId, indexErr)
	}
	defer indexRes.Body.Close()
	if indexRes.IsError() {
		return fmt.Errorf("failed indexing session %s: %s", record.SessionId, indexRes.String())
	}

	// drop any variants left over from a previous run of this session
	if _, deleteErr := r.deleteVariantsBySessionId(record.SessionId); deleteErr != nil {
		return deleteErr
	}

	// bulk-index the variant lists; one indexer per save so Close
	// doubles as the flush barrier
	bulkIndexer, biErr := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      variantsIndex,
		Client:     r.Client,
		NumWorkers: 2,
	})
	if biErr != nil {
		return fmt.Errorf("failed creating bulk indexer: %v", biErr)
	}

	var failedCount int
	for _, variants := range record.VariantsByGene {
		for _, variant := range variants {
			variantData, variantMarshallErr := json.Marshal(variantDocument{
				VariantRecord: variant,
				SessionId:     record.SessionId,
			})
			if variantMarshallErr != nil {
				failedCount++
				continue
			}

			addErr := bulkIndexer.Add(
				context.Background(),
				esutil.BulkIndexerItem{
					Action: "index",
					Body:   bytes.NewReader(variantData),
					OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
						if err != nil {
							fmt.Printf("ERROR: %s", err)
						} else {
							fmt.Printf("ERROR: %s: %s", res.Error.Type, res.Error.Reason)
						}
					},
				},
			)
			if addErr != nil {
				failedCount++
			}
		}
	}

	if closeErr := bulkIndexer.Close(context.Background()); closeErr != nil {
		return fmt.Errorf("failed flushing variants for session %s: %v", record.SessionId, closeErr)
	}
	if failedCount > 0 {
		return fmt.Errorf("failed to queue %d variants for session %s", failedCount, record.SessionId)
	}

	stats := bulkIndexer.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("failed to index %d variants for session %s", stats.NumFailed, record.SessionId)
	}

	return nil
}

func (r *Repository) GetSession(sessionId string) (*repositories.SessionRecord, error) {
	getRes, getErr := r.Client.Get(
		sessionsIndex, sessionId,
		r.Client.Get.WithContext(context.Background()),
	)
	if getErr != nil {
		return nil, fmt.Errorf("failed fetching session %s: %v", sessionId, getErr)
	}
	defer getRes.Body.Close()

	resultString := getRes.String()
	bracketString, jsonBodyString := utils.GetLeadingStringInBetweenSquareBrackets(resultString)
	if !strings.Contains(bracketString, "200") {
		return nil, fmt.Errorf("session %s not found: got '%s'", sessionId, bracketString)
	}

	var envelope struct {
		Found  bool                       `json:"found"`
		Source repositories.SessionRecord `json:"_source"`
	}
	if umErr := json.Unmarshal([]byte(jsonBodyString), &envelope); umErr != nil {
		return nil, fmt.Errorf("error unmarshalling session response: %v", umErr)
	}
	if !envelope.Found {
		return nil, fmt.Errorf("session %s not found", sessionId)
	}

	return &envelope.Source, nil
}

func (r *Repository) GetGenes(sessionId string) ([]models.GeneSummary, error) {
	record, err := r.GetSession(sessionId)
	if err != nil {
		return nil, err
	}
	return record.Summary.Genes, nil
}

func (r *Repository) GetGeneVariants(sessionId string, gene string) ([]models.VariantRecord, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"sessionId.keyword": sessionId}},
					{"term": map[string]interface{}{"gene.keyword": gene}},
				},
			},
		},
		"size": 10000,
		"sort": []map[string]interface{}{
			{"idx": map[string]interface{}{"order": "asc"}},
		},
	}

	result, searchErr := r.search(variantsIndex, query)
	if searchErr != nil {
		return nil, searchErr
	}

	return variantsFromHits(result)
}

func (r *Repository) GetVariantByIdx(sessionId string, idx int) (*models.VariantRecord, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"sessionId.keyword": sessionId}},
					{"term": map[string]interface{}{"idx": idx}},
				},
			},
		},
		"size": 1,
	}

	result, searchErr := r.search(variantsIndex, query)
	if searchErr != nil {
		return nil, searchErr
	}

	variants, parseErr := variantsFromHits(result)
	if parseErr != nil {
		return nil, parseErr
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("variant %d not found in session %s", idx, sessionId)
	}

	return &variants[0], nil
}

func (r *Repository) DeleteSessionsBefore(cutoff time.Time) (int, error) {
	// find the stale session ids first so their variants go too;
	// retained sessions are excluded from the sweep
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"range": map[string]interface{}{
						"updatedAt": map[string]interface{}{
							"lt": cutoff.Format(time.RFC3339),
						},
					}},
				},
				"must_not": []map[string]interface{}{
					{"term": map[string]interface{}{"meta.retain": true}},
				},
			},
		},
		"size":    10000,
		"_source": []string{"sessionId"},
	}

	result, searchErr := r.search(sessionsIndex, query)
	if searchErr != nil {
		return 0, searchErr
	}

	staleSessionIds := make([]string, 0)
	docsHits := result["hits"].(map[string]interface{})["hits"]
	allDocHits := []map[string]interface{}{}
	mapstructure.Decode(docsHits, &allDocHits)

	for _, hit := range allDocHits {
		source := hit["_source"].(map[string]interface{})
		if sessionId, ok := source["sessionId"].(string); ok {
			staleSessionIds = append(staleSessionIds, sessionId)
		}
	}

	for _, sessionId := range staleSessionIds {
		if _, deleteErr := r.deleteVariantsBySessionId(sessionId); deleteErr != nil {
			return 0, deleteErr
		}
		deleteRes, deleteErr := r.Client.Delete(
			sessionsIndex, sessionId,
			r.Client.Delete.WithContext(context.Background()),
		)
		if deleteErr != nil {
			return 0, fmt.Errorf("failed deleting session %s: %v", sessionId, deleteErr)
		}
		deleteRes.Body.Close()
	}

	return len(staleSessionIds), nil
}

func (r *Repository) deleteVariantsBySessionId(sessionId string) (map[string]interface{}, error) {
	var buf bytes.Buffer
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"sessionId.keyword": sessionId}},
				},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("error encoding delete query: %v", err)
	}

	deleteRes, deleteErr := r.Client.DeleteByQuery(
		[]string{variantsIndex},
		bytes.NewReader(buf.Bytes()),
	)
	if deleteErr != nil {
		return nil, fmt.Errorf("failed deleting variants for session %s: %v", sessionId, deleteErr)
	}
	defer deleteRes.Body.Close()

	resultString := deleteRes.String()
	if r.Config.Debug {
		fmt.Println(resultString)
	}

	// Known bug: response comes back with a preceding '[200 OK] ' which needs trimming
	result := make(map[string]interface{})
	bracketString, jsonBodyString := utils.GetLeadingStringInBetweenSquareBrackets(resultString)
	if !strings.Contains(bracketString, "200") {
		return nil, fmt.Errorf("failed to delete variants by session id : got '%s'", bracketString)
	}
	if umErr := json.Unmarshal([]byte(jsonBodyString), &result); umErr != nil {
		return nil, fmt.Errorf("error unmarshalling variant deletion response: %v", umErr)
	}

	return result, nil
}

func (r *Repository) search(index string, query map[string]interface{}) (map[string]interface{}, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("error encoding query: %v", err)
	}

	if r.Config.Debug {
		// view the outbound elasticsearch query
		fmt.Println(buf.String())
	}

	searchRes, searchErr := r.Client.Search(
		r.Client.Search.WithContext(context.Background()),
		r.Client.Search.WithIndex(index),
		r.Client.Search.WithBody(&buf),
		r.Client.Search.WithTrackTotalHits(true),
		r.Client.Search.WithPretty(),
	)
	if searchErr != nil {
		return nil, fmt.Errorf("error getting response: %v", searchErr)
	}
	defer searchRes.Body.Close()

	resultString := searchRes.String()
	if r.Config.Debug {
		fmt.Println(resultString)
	}

	// Known bug: response comes back with a preceding '[200 OK] ' which needs trimming
	result := make(map[string]interface{})
	bracketString, jsonBodyString := utils.GetLeadingStringInBetweenSquareBrackets(resultString)
	if !strings.Contains(bracketString, "200") {
		return nil, fmt.Errorf("search against %s failed : got '%s'", index, bracketString)
	}
	if umErr := json.Unmarshal([]byte(jsonBodyString), &result); umErr != nil {
		return nil, fmt.Errorf("error unmarshalling search response: %v", umErr)
	}

	return result, nil
}

func variantsFromHits(result map[string]interface{}) ([]models.VariantRecord, error) {
	variants := make([]models.VariantRecord, 0)

	hitsWrapper, ok := result["hits"].(map[string]interface{})
	if !ok {
		return variants, nil
	}

	docsHits := hitsWrapper["hits"]
	allDocHits := []map[string]interface{}{}
	mapstructure.Decode(docsHits, &allDocHits)

	// grab _source for each hit
	for _, hit := range allDocHits {
		source := hit["_source"]
		byteSlice, _ := json.Marshal(source)

		var resultingVariant models.VariantRecord
		if err := json.Unmarshal(byteSlice, &resultingVariant); err != nil {
			fmt.Println("failed to unmarshal:", err)
			continue
		}

		variants = append(variants, resultingVariant)
	}

	return variants, nil
}
