package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const courseCacheTTL = 10 * time.Minute

// ErrCourseNotFound means the catalog has no such course.
var ErrCourseNotFound = errors.New("course not found")

type Course struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Price float64   `json:"price"`
}

// CourseCatalog resolves course existence and titles from the catalog
// service.
type CourseCatalog interface {
	GetCourse(ctx context.Context, courseID uuid.UUID) (*Course, error)
}

type httpCourseCatalog struct {
	baseURL string
	client  *http.Client
	cache   *redis.Client
	logger  *zap.Logger
}

// NewCourseCatalog builds a catalog client. The redis client is optional;
// with nil every lookup goes to the catalog service.
func NewCourseCatalog(baseURL string, cache *redis.Client, logger *zap.Logger) CourseCatalog {
	return &httpCourseCatalog{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		cache:   cache,
		logger:  logger,
	}
}

func (c *httpCourseCatalog) GetCourse(ctx context.Context, courseID uuid.UUID) (*Course, error) {
	key := fmt.Sprintf("course:%s", courseID.String())

	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key).Bytes(); err == nil {
			var course Course
			if err := json.Unmarshal(data, &course); err == nil {
				return &course, nil
			}
		}
	}

	url := fmt.Sprintf("%s/courses/internal/%s", c.baseURL, courseID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCourseNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("course service returned %d", resp.StatusCode)
	}

	var course Course
	if err := json.NewDecoder(resp.Body).Decode(&course); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(course); err == nil {
			if err := c.cache.Set(ctx, key, data, courseCacheTTL).Err(); err != nil {
				c.logger.Warn("Failed to cache course", zap.String("course_id", courseID.String()), zap.Error(err))
			}
		}
	}

	return &course, nil
}
