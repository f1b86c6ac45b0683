package course

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
)

const (
	subjectsCacheKey   = "catalog:subjects"
	allCoursesCacheKey = "catalog:courses:all"
)

func subjectCoursesCacheKey(subjectID string) string {
	return "catalog:courses:subject:" + subjectID
}

func newID() string {
	return uuid.New().String()
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

type Service struct {
	repo     Repository
	tx       core.Transactor
	cache    core.Cache
	cacheTTL time.Duration
	mailSvc  core.EmailService
	logger   core.Logger
}

func NewService(
	repo Repository,
	tx core.Transactor,
	cache core.Cache,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		cache:    cache,
		cacheTTL: conf.Cache.TTL,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

func (svc *Service) checkSubjectSlug(ctx context.Context, slug string) error {
	exists, err := svc.repo.SubjectSlugExists(ctx, slug)
	if err != nil {
		return errors.Wrap(err, "checking subject slug")
	}
	if exists {
		return core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	}
	return nil
}

func (svc *Service) checkCourseRelations(ctx context.Context, subjectID, slug, courseID string) error {
	var fldErrs []core.FieldError
	if _, err := svc.GetSubject(ctx, subjectID); err != nil {
		if errors.Cause(err) != ErrSubjectNotFound {
			return errors.Wrap(err, "finding subject")
		}
		fldErrs = append(fldErrs, core.FieldError{Field: "subject", Error: ErrSubjectNotFound.Error()})
	}

	var excluded []string
	if courseID != "" {
		excluded = append(excluded, courseID)
	}
	exists, err := svc.repo.CourseSlugExists(ctx, slug, excluded...)
	if err != nil {
		return errors.Wrap(err, "checking course slug")
	}
	if exists {
		fldErrs = append(fldErrs, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	sub, err := svc.repo.CreateSubject(ctx, Subject{
		ID:    newID(),
		Title: ns.Title,
		Slug:  ns.Slug,
	})
	if err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	svc.uncache(ctx, subjectsCacheKey)
	return sub, nil
}

// QuerySubjects lists all subjects with their number of courses.
func (svc *Service) QuerySubjects(ctx context.Context) ([]SubjectSummary, error) {
	var subjects []SubjectSummary
	if svc.fromCache(ctx, subjectsCacheKey, &subjects) {
		return subjects, nil
	}
	subjects, err := svc.repo.QuerySubjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	svc.toCache(ctx, subjectsCacheKey, subjects)
	return subjects, nil
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	if !isUUID(id) {
		return Subject{}, ErrSubjectNotFound
	}
	return svc.repo.GetSubject(ctx, SubjectFilter{ID: id})
}

func (svc *Service) GetSubjectBySlug(ctx context.Context, slug string) (Subject, error) {
	return svc.repo.GetSubject(ctx, SubjectFilter{Slug: core.CleanString(slug, true /* lower */)})
}

// Catalog

// QueryCourses lists all courses, or only those filed under the subject with the given slug.
func (svc *Service) QueryCourses(ctx context.Context, subjectSlug string) ([]CourseSummary, error) {
	key := allCoursesCacheKey
	var filter CourseFilter
	if subjectSlug != "" {
		sub, err := svc.GetSubjectBySlug(ctx, subjectSlug)
		if err != nil {
			return nil, err
		}
		key = subjectCoursesCacheKey(sub.ID)
		filter.SubjectID = sub.ID
	}

	var courses []CourseSummary
	if svc.fromCache(ctx, key, &courses) {
		return courses, nil
	}
	courses, err := svc.repo.QueryCourses(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	svc.toCache(ctx, key, courses)
	return courses, nil
}

// GetCourse returns a course with its modules.
func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	if !isUUID(id) {
		return Course{}, ErrNotFound
	}
	return svc.getCourse(ctx, CourseFilter{ID: id})
}

// GetCourseBySlug returns a course with its modules.
func (svc *Service) GetCourseBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.getCourse(ctx, CourseFilter{Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *Service) getCourse(ctx context.Context, filter CourseFilter) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, filter)
	if err != nil {
		return Course{}, err
	}
	if crs.Modules, err = svc.repo.QueryModules(ctx, crs.ID); err != nil {
		return Course{}, errors.Wrap(err, "querying modules")
	}
	return crs, nil
}

// Instructor's courses

// QueryOwned lists the courses owned by ownerID.
func (svc *Service) QueryOwned(ctx context.Context, ownerID string) ([]CourseSummary, error) {
	courses, err := svc.repo.QueryCourses(ctx, CourseFilter{OwnerID: ownerID})
	return courses, errors.Wrap(err, "querying owned courses")
}

// GetOwned returns the course with its modules if it is owned by ownerID, ErrNotFound otherwise.
func (svc *Service) GetOwned(ctx context.Context, ownerID, id string) (Course, error) {
	if !isUUID(id) || ownerID == "" {
		return Course{}, ErrNotFound
	}
	return svc.getCourse(ctx, CourseFilter{ID: id, OwnerID: ownerID})
}

// Create creates a course owned by ownerID.
func (svc *Service) Create(ctx context.Context, ownerID string, nc NewCourse) (Course, error) {
	crs, err := svc.repo.CreateCourse(ctx, Course{
		ID:        newID(),
		SubjectID: nc.SubjectID,
		OwnerID:   ownerID,
		Title:     nc.Title,
		Slug:      nc.Slug,
		Overview:  nc.Overview,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	svc.uncacheCatalog(ctx, crs.SubjectID)
	return crs, nil
}

// Update updates a course previously fetched with GetOwned.
func (svc *Service) Update(ctx context.Context, crs Course, uc UpdateCourse) (Course, error) {
	oldSubjectID := crs.SubjectID
	crs.SubjectID = uc.SubjectID
	crs.Title = uc.Title
	crs.Slug = uc.Slug
	if uc.Overview != nil {
		crs.Overview = *uc.Overview
	}

	updated, err := svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	updated.Modules = crs.Modules
	svc.uncacheCatalog(ctx, oldSubjectID, updated.SubjectID)
	return updated, nil
}

// Delete deletes a course previously fetched with GetOwned.
func (svc *Service) Delete(ctx context.Context, crs Course) error {
	if err := svc.repo.DeleteCourse(ctx, crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	svc.uncacheCatalog(ctx, crs.SubjectID)
	return nil
}

// GetOwnedModule returns the module if its course is owned by ownerID, ErrModuleNotFound otherwise.
func (svc *Service) GetOwnedModule(ctx context.Context, ownerID, id string) (Module, error) {
	if !isUUID(id) || ownerID == "" {
		return Module{}, ErrModuleNotFound
	}
	return svc.repo.GetModule(ctx, ModuleFilter{ID: id, OwnerID: ownerID})
}

// ReorderModules sets the order of the given modules. Modules of courses not owned by ownerID are skipped.
func (svc *Service) ReorderModules(ctx context.Context, ownerID string, orders map[string]int) error {
	if err := ValidateOrders(orders); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.SetModuleOrders(ctx, ownerID, orders), "setting module orders")
}

// ValidateOrders checks a {id: order} reorder payload.
func ValidateOrders(orders map[string]int) error {
	var fldErrs []core.FieldError
	for id, order := range orders {
		if !isUUID(id) {
			fldErrs = append(fldErrs, core.FieldError{Field: id, Error: "invalid id"})
		} else if order < 0 {
			fldErrs = append(fldErrs, core.FieldError{Field: id, Error: "order must be 0 or greater"})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// caching

func (svc *Service) fromCache(ctx context.Context, key string, dst interface{}) bool {
	found, err := svc.cache.Get(ctx, key, dst)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cache key %q: %v", key, err), err)
		return false
	}
	return found
}

func (svc *Service) toCache(ctx context.Context, key string, val interface{}) {
	if err := svc.cache.Set(ctx, key, val, svc.cacheTTL); err != nil {
		svc.logger.Warn(fmt.Sprintf("writing cache key %q: %v", key, err), err)
	}
}

func (svc *Service) uncache(ctx context.Context, keys ...string) {
	if err := svc.cache.Delete(ctx, keys...); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting cache keys %v: %v", keys, err), err)
	}
}

// uncacheCatalog drops the cached lists a course change shows up in.
func (svc *Service) uncacheCatalog(ctx context.Context, subjectIDs ...string) {
	keys := []string{subjectsCacheKey, allCoursesCacheKey}
	for _, id := range subjectIDs {
		keys = append(keys, subjectCoursesCacheKey(id))
	}
	svc.uncache(ctx, keys...)
}

// UncacheCatalog drops every cached catalog list.
// Call it after course changes made outside the service, such as deleting course owners.
func (svc *Service) UncacheCatalog(ctx context.Context) error {
	subjects, err := svc.repo.QuerySubjects(ctx)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	ids := make([]string, 0, len(subjects))
	for _, sub := range subjects {
		ids = append(ids, sub.ID)
	}
	svc.uncacheCatalog(ctx, ids...)
	return nil
}
