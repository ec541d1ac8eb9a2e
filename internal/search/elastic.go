package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/posts"
	"github.com/projecty/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Index names
const (
	IndexUsers = "projecty_users"
	IndexPosts = "projecty_posts"
)

// ElasticSearcher matches in Elasticsearch and renders hits from Postgres.
// Any cluster error falls back to the Postgres searcher.
type ElasticSearcher struct {
	es       *elasticsearch.Client
	db       *gorm.DB
	fallback *PostgresSearcher
}

// NewElasticSearcher connects to url. transport may be nil.
func NewElasticSearcher(url string, db *gorm.DB, transport http.RoundTripper) (*ElasticSearcher, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: telemetry.NewInstrumentedTransport(transport),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &ElasticSearcher{es: es, db: db, fallback: NewPostgresSearcher(db)}, nil
}

// Ping checks the cluster is reachable
func (s *ElasticSearcher) Ping(ctx context.Context) error {
	res, err := s.es.Info(s.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	return responseError("info", res.StatusCode, res.IsError(), res.Body)
}

// InitializeIndices creates both indices when missing
func (s *ElasticSearcher) InitializeIndices(ctx context.Context) error {
	text := map[string]any{"type": "text", "analyzer": "standard"}
	keyword := map[string]any{"type": "keyword"}
	date := map[string]any{"type": "date"}

	users := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id": keyword,
				"username": map[string]any{
					"type":     "text",
					"analyzer": "standard",
					"fields":   map[string]any{"keyword": keyword},
				},
				"display_name": text,
				"bio":          text,
				"created_at":   date,
			},
		},
	}
	if err := s.createIndex(ctx, IndexUsers, users); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	postMapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":         keyword,
				"user_id":    keyword,
				"username":   keyword,
				"body":       text,
				"hashtags":   map[string]any{"type": "keyword", "normalizer": "lowercase"},
				"created_at": date,
			},
		},
		"settings": map[string]any{
			"analysis": map[string]any{
				"normalizer": map[string]any{
					"lowercase": map[string]any{"type": "custom", "filter": []string{"lowercase"}},
				},
			},
		},
	}
	if err := s.createIndex(ctx, IndexPosts, postMapping); err != nil {
		return fmt.Errorf("failed to create posts index: %w", err)
	}
	return nil
}

func (s *ElasticSearcher) createIndex(ctx context.Context, name string, mapping map[string]any) error {
	res, err := s.es.Indices.Exists([]string{name}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	res, err = s.es.Indices.Create(name,
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
		s.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	return responseError("create index", res.StatusCode, res.IsError(), res.Body)
}

// IndexUser writes the user document. The profile must be preloaded.
func (s *ElasticSearcher) IndexUser(ctx context.Context, user *models.User) error {
	return s.index(ctx, IndexUsers, user.ID, UserToDoc(*user))
}

// IndexPost writes the post document, looking up the author's username
func (s *ElasticSearcher) IndexPost(ctx context.Context, post *models.Post) error {
	var usernames []string
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", post.UserID).Pluck("username", &usernames).Error; err != nil {
		return err
	}
	if len(usernames) == 0 {
		return fmt.Errorf("author %s of post %s not found", post.UserID, post.ID)
	}
	return s.index(ctx, IndexPosts, post.ID, PostToDoc(*post, usernames[0]))
}

func (s *ElasticSearcher) index(ctx context.Context, index, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	res, err := s.es.Index(index, bytes.NewReader(body),
		s.es.Index.WithDocumentID(id),
		s.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()
	return responseError("index", res.StatusCode, res.IsError(), res.Body)
}

func (s *ElasticSearcher) Users(ctx context.Context, q string) ([]UserHit, error) {
	ids, err := s.match(ctx, IndexUsers, map[string]any{
		"multi_match": map[string]any{
			"query":     q,
			"fields":    []string{"username^2", "display_name^1.5", "bio^0.5"},
			"fuzziness": "AUTO",
		},
	})
	metrics.RecordSearch("elasticsearch", err)
	if err != nil {
		logger.Log.Warn("Elasticsearch user search failed, using Postgres", zap.Error(err))
		hits, err := s.fallback.Users(ctx, q)
		metrics.RecordSearch("postgres", err)
		return hits, err
	}

	out := []UserHit{}
	if len(ids) == 0 {
		return out, nil
	}
	err = s.db.WithContext(ctx).Table("users").
		Select("users.id, users.username, COALESCE(profiles.display_name, users.username) AS display_name, profiles.avatar_url, profiles.bio").
		Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
		Where("users.id IN ?", ids).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return inRankOrder(out, ids, func(h UserHit) string { return h.ID }), nil
}

func (s *ElasticSearcher) Posts(ctx context.Context, q string) ([]posts.View, error) {
	ids, err := s.match(ctx, IndexPosts, map[string]any{
		"bool": map[string]any{
			"should": []map[string]any{
				{"match": map[string]any{"body": map[string]any{"query": q, "fuzziness": "AUTO"}}},
				{"term": map[string]any{"hashtags": map[string]any{"value": strings.TrimPrefix(q, "#"), "boost": 2.0}}},
			},
			"minimum_should_match": 1,
		},
	})
	metrics.RecordSearch("elasticsearch", err)
	if err != nil {
		logger.Log.Warn("Elasticsearch post search failed, using Postgres", zap.Error(err))
		views, err := s.fallback.Posts(ctx, q)
		metrics.RecordSearch("postgres", err)
		return views, err
	}

	out := []posts.View{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := posts.ViewQuery(s.db.WithContext(ctx)).Where("posts.id IN ?", ids).Scan(&out).Error; err != nil {
		return nil, err
	}
	return inRankOrder(out, ids, func(v posts.View) string { return v.ID }), nil
}

// match runs query against index and returns the hit ids best first
func (s *ElasticSearcher) match(ctx context.Context, index string, query map[string]any) ([]string, error) {
	body, err := json.Marshal(map[string]any{
		"query":   query,
		"size":    ResultLimit,
		"_source": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if err := responseError("search", res.StatusCode, res.IsError(), res.Body); err != nil {
		return nil, err
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// inRankOrder orders rows by their position in ids, dropping rows that are
// no longer in the database
func inRankOrder[T any](rows []T, ids []string, id func(T) string) []T {
	byID := make(map[string]T, len(rows))
	for _, row := range rows {
		byID[id(row)] = row
	}
	out := make([]T, 0, len(rows))
	for _, want := range ids {
		if row, ok := byID[want]; ok {
			out = append(out, row)
		}
	}
	return out
}

func responseError(op string, status int, isError bool, body io.Reader) error {
	if !isError {
		return nil
	}
	var errResp map[string]any
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		return fmt.Errorf("elasticsearch %s: status %d", op, status)
	}
	return fmt.Errorf("elasticsearch %s: status %d: %v", op, status, errResp["error"])
}
