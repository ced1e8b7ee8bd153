package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	"github.com/noah-isme/classroom-sync-api/pkg/cache"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

type resourceRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Resource, error)
	Create(ctx context.Context, resource *models.Resource) error
}

// CreateResourceRequest describes a shared resource.
type CreateResourceRequest struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Type       string   `json:"type" validate:"required,oneof=worksheet lesson_plan curriculum_unit"`
	ClassID    *string  `json:"class_id"`
	Tags       []string `json:"tags" validate:"max=32,dive,max=120"`
	Subject    string   `json:"subject" validate:"max=120"`
	GradeLevel string   `json:"grade_level" validate:"max=60"`
}

// ResourceService lists and stores the shared resources of an owner.
type ResourceService struct {
	resources resourceRepository
	classes   classReader
	matcher   ResourceMatcher
	cache     *CacheService
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResourceService constructs ResourceService.
func NewResourceService(resources resourceRepository, classes classReader, matcher ResourceMatcher, cacheSvc *CacheService, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceService{resources: resources, classes: classes, matcher: matcher, cache: cacheSvc, ttl: ttl, validator: validate, logger: logger}
}

// VisibleIn returns the owner's resources that show up inside the class.
func (s *ResourceService) VisibleIn(ctx context.Context, classID string) ([]models.Resource, error) {
	class, err := findOwnedClass(ctx, s.classes, classID)
	if err != nil {
		return nil, err
	}
	key := cache.OwnerClassResourcesKey(class.OwnerID, class.ID)
	var cached []models.Resource
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	all, err := s.resources.ListByOwner(ctx, class.OwnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	visible := s.matcher.Filter(all, *class)
	_ = s.cache.Set(ctx, key, visible, s.ttl)
	return visible, nil
}

// Create stores a resource for the owner. An explicit class link must point
// at one of the owner's classes.
func (s *ResourceService) Create(ctx context.Context, ownerID string, req CreateResourceRequest) (*models.Resource, error) {
	req.Title = strings.TrimSpace(req.Title)
	if strings.TrimSpace(ownerID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	if req.ClassID != nil && strings.TrimSpace(*req.ClassID) == "" {
		req.ClassID = nil
	}
	if req.ClassID != nil {
		class, err := s.classes.FindByID(ctx, *req.ClassID)
		if err != nil {
			return nil, mapRowError(err, "class not found", "failed to load class")
		}
		if class.OwnerID != ownerID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
	}

	tags := make(pq.StringArray, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	resource := &models.Resource{
		OwnerID:    ownerID,
		Title:      req.Title,
		Type:       models.ResourceType(req.Type),
		ClassID:    req.ClassID,
		Tags:       tags,
		Subject:    req.Subject,
		GradeLevel: req.GradeLevel,
	}
	if err := s.resources.Create(ctx, resource); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}
	s.cache.Forget(ctx, cache.OwnerResourcesPattern(ownerID))
	return resource, nil
}
