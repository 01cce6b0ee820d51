package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"picstoria/api/internal/config"
	"picstoria/api/internal/ids"
	"picstoria/api/internal/imageapi"
	"picstoria/api/internal/models"
	"picstoria/api/internal/repository"
)

const (
	maxTagsPerPhoto = 5
	maxTagLength    = 20

	allowedImagePrefix = "https://images.unsplash.com/"
)

// PhotoService is plain request/response glue over the photo store and the
// external image services. MirAI calls are best effort; a photo saves fine
// without suggestions.
type PhotoService struct {
	photos   PhotoStore
	history  HistoryStore
	analyzer imageapi.ImageAnalyzer
	searcher imageapi.ImageSearcher
	cache    *redis.Client
	cacheTTL time.Duration
	log      zerolog.Logger
}

func NewPhotoService(
	photos PhotoStore,
	history HistoryStore,
	analyzer imageapi.ImageAnalyzer,
	searcher imageapi.ImageSearcher,
	cache *redis.Client,
	cfg config.UnsplashConfig,
	log zerolog.Logger,
) *PhotoService {
	return &PhotoService{
		photos:   photos,
		history:  history,
		analyzer: analyzer,
		searcher: searcher,
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		log:      log,
	}
}

type SavePhotoInput struct {
	UserID         string
	ImageURL       string
	Description    string
	AltDescription string
}

func (s *PhotoService) SavePhoto(ctx context.Context, input SavePhotoInput) (models.Photo, error) {
	if !strings.HasPrefix(input.ImageURL, allowedImagePrefix) {
		return models.Photo{}, fmt.Errorf("%w: invalid image URL", ErrValidation)
	}

	photo := models.Photo{
		ID:             ids.New(),
		UserID:         input.UserID,
		ImageURL:       input.ImageURL,
		Description:    input.Description,
		AltDescription: input.AltDescription,
	}

	if s.analyzer != nil {
		analysis, err := s.analyzer.AnalyzeImage(ctx, input.ImageURL)
		if err != nil {
			s.log.Warn().Err(err).Str("image_url", input.ImageURL).Msg("image analysis failed")
		} else {
			photo.ColorPalette = analysis.ColorPalette
			photo.SuggestedTags = analysis.SuggestedTags
		}
	}

	if err := s.photos.Create(ctx, photo); err != nil {
		return models.Photo{}, err
	}
	return photo, nil
}

// PhotoPage is a saved photo with its tags and, when MirAI cooperates,
// visually similar recommendations.
type PhotoPage struct {
	Photo           models.Photo
	Tags            []string
	Recommendations []imageapi.Recommendation
}

func (s *PhotoService) GetPhotoPage(ctx context.Context, userID, photoID string) (PhotoPage, error) {
	photo, err := s.getOwnedPhoto(ctx, userID, photoID)
	if err != nil {
		return PhotoPage{}, err
	}

	tags, err := s.photos.ListTags(ctx, photoID)
	if err != nil {
		return PhotoPage{}, err
	}
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}

	page := PhotoPage{Photo: photo, Tags: names}

	if s.analyzer != nil && s.searcher != nil {
		page.Recommendations = s.recommend(ctx, photo, names)
	}
	return page, nil
}

func (s *PhotoService) recommend(ctx context.Context, photo models.Photo, tags []string) []imageapi.Recommendation {
	query := photo.Description
	if query == "" {
		query = photo.AltDescription
	}
	if query == "" && len(tags) > 0 {
		query = strings.Join(tags, " ")
	}
	if query == "" {
		return nil
	}

	pool, err := s.searchCached(ctx, query, 20)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("image pool lookup failed")
		return nil
	}
	urls := make([]string, 0, len(pool))
	for _, hit := range pool {
		urls = append(urls, hit.ImageURL)
	}

	recs, err := s.analyzer.RecommendImages(ctx, photo.ImageURL, urls, 6)
	if err != nil {
		s.log.Warn().Err(err).Str("photo_id", photo.ID).Msg("recommendations failed")
		return nil
	}
	return recs
}

func (s *PhotoService) ListCollection(ctx context.Context, userID string) ([]models.Photo, error) {
	return s.photos.ListByUser(ctx, userID)
}

func (s *PhotoService) AddTag(ctx context.Context, userID, photoID, name, tagType string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: tag must be a non-empty string", ErrValidation)
	}
	if len(name) > maxTagLength {
		return fmt.Errorf("%w: tag must be at most %d characters", ErrValidation, maxTagLength)
	}

	if _, err := s.getOwnedPhoto(ctx, userID, photoID); err != nil {
		return err
	}

	existing, err := s.photos.ListTags(ctx, photoID)
	if err != nil {
		return err
	}

	distinct := make(map[string]struct{}, len(existing)+1)
	for _, tag := range existing {
		distinct[tag.Name] = struct{}{}
	}
	if _, ok := distinct[name]; ok {
		return nil
	}
	distinct[name] = struct{}{}
	if len(distinct) > maxTagsPerPhoto {
		return ErrTagLimit
	}

	return s.photos.AddTag(ctx, models.Tag{
		ID:      ids.New(),
		PhotoID: photoID,
		Name:    name,
		Type:    tagType,
	})
}

func (s *PhotoService) RemoveTag(ctx context.Context, userID, photoID, name string) error {
	if _, err := s.getOwnedPhoto(ctx, userID, photoID); err != nil {
		return err
	}
	return s.photos.RemoveTag(ctx, photoID, name)
}

func (s *PhotoService) SearchByTag(ctx context.Context, userID, tag, sort string) ([]models.Photo, error) {
	if tag == "" {
		return nil, fmt.Errorf("%w: a valid tag must be provided", ErrValidation)
	}
	sort = strings.ToUpper(sort)
	if sort == "" {
		sort = "ASC"
	}
	if sort != "ASC" && sort != "DESC" {
		return nil, fmt.Errorf("%w: sort order must be either ASC or DESC", ErrValidation)
	}

	s.recordSearch(ctx, userID, tag, "tag-search")

	return s.photos.FindByUserAndTag(ctx, userID, tag, sort == "ASC")
}

// SearchExternal proxies the stock photo catalog, caching results briefly
// so repeated queries do not burn API quota.
func (s *PhotoService) SearchExternal(ctx context.Context, userID, query string) ([]imageapi.ImageResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}

	s.recordSearch(ctx, userID, query, "external-search")

	return s.searchCached(ctx, query, 10)
}

func (s *PhotoService) History(ctx context.Context, userID string) ([]models.SearchHistory, error) {
	return s.history.ListByUser(ctx, userID)
}

func (s *PhotoService) searchCached(ctx context.Context, query string, perPage int) ([]imageapi.ImageResult, error) {
	key := fmt.Sprintf("unsplash:q:%s:%d", strings.ToLower(query), perPage)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var results []imageapi.ImageResult
			if err := json.Unmarshal([]byte(raw), &results); err == nil {
				return results, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("search cache read failed")
		}
	}

	results, err := s.searcher.Search(ctx, query, perPage)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(results); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Msg("search cache write failed")
			}
		}
	}
	return results, nil
}

func (s *PhotoService) getOwnedPhoto(ctx context.Context, userID, photoID string) (models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return models.Photo{}, err
	}
	if photo.UserID != userID {
		// Do not reveal other users' photo ids.
		return models.Photo{}, repository.ErrPhotoNotFound
	}
	return photo, nil
}

func (s *PhotoService) recordSearch(ctx context.Context, userID, query, searchType string) {
	err := s.history.Create(ctx, models.SearchHistory{
		ID:     ids.New(),
		UserID: userID,
		Query:  query,
		Type:   searchType,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("record search history")
	}
}
