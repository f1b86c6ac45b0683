package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/educa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

// Subjects

func (repo *courseRepository) CreateSubject(ctx context.Context, sub course.Subject) (course.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, s := range repo.db.subjects {
		if s.Slug == sub.Slug {
			return course.Subject{}, course.ErrSlugExists
		}
	}
	s := sub
	repo.db.subjects[sub.ID] = &s
	return sub, nil
}

func (repo *courseRepository) QuerySubjects(ctx context.Context) ([]course.SubjectSummary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	totals := make(map[string]int)
	for _, crs := range repo.db.courses {
		totals[crs.SubjectID]++
	}
	subjects := make([]course.SubjectSummary, 0, len(repo.db.subjects))
	for _, sub := range repo.db.subjects {
		subjects = append(subjects, course.SubjectSummary{Subject: *sub, TotalCourses: totals[sub.ID]})
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Title != subjects[j].Title {
			return subjects[i].Title < subjects[j].Title
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects, nil
}

func (repo *courseRepository) GetSubject(ctx context.Context, filter course.SubjectFilter) (course.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID == "" && filter.Slug == "" {
		return course.Subject{}, course.ErrSubjectNotFound
	}
	for _, sub := range repo.db.subjects {
		if (filter.ID == "" || sub.ID == filter.ID) && (filter.Slug == "" || sub.Slug == filter.Slug) {
			return *sub, nil
		}
	}
	return course.Subject{}, course.ErrSubjectNotFound
}

func (repo *courseRepository) SubjectSlugExists(ctx context.Context, slug string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.subjects {
		if sub.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// Courses

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, c := range repo.db.courses {
		if c.Slug == crs.Slug {
			return course.Course{}, course.ErrSlugExists
		}
	}
	c := crs
	c.Modules = nil
	repo.db.courses[crs.ID] = &c
	return c, nil
}

func (repo *courseRepository) matchCourse(crs *course.Course, filter course.CourseFilter) bool {
	if filter.ID != "" && crs.ID != filter.ID {
		return false
	}
	if filter.Slug != "" && crs.Slug != filter.Slug {
		return false
	}
	if filter.OwnerID != "" && crs.OwnerID != filter.OwnerID {
		return false
	}
	if filter.SubjectID != "" && crs.SubjectID != filter.SubjectID {
		return false
	}
	if filter.StudentID != "" {
		if _, ok := repo.db.enrollments[enrollment{courseID: crs.ID, studentID: filter.StudentID}]; !ok {
			return false
		}
	}
	return true
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.CourseFilter) ([]course.CourseSummary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	totals := make(map[string]int)
	for _, mod := range repo.db.modules {
		totals[mod.CourseID]++
	}
	courses := make([]course.CourseSummary, 0)
	for _, crs := range repo.db.courses {
		if repo.matchCourse(crs, filter) {
			courses = append(courses, course.CourseSummary{Course: *crs, TotalModules: totals[crs.ID]})
		}
	}
	// newest first
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.After(courses[j].CreatedAt)
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.CourseFilter) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter == (course.CourseFilter{}) {
		return course.Course{}, course.ErrNotFound
	}
	for _, crs := range repo.db.courses {
		if repo.matchCourse(crs, filter) {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) CourseSlugExists(ctx context.Context, slug string, excludedIDs ...string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Slug == slug && !contains(excludedIDs, crs.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	for _, c := range repo.db.courses {
		if c.ID != crs.ID && c.Slug == crs.Slug {
			return course.Course{}, course.ErrSlugExists
		}
	}
	orig.SubjectID = crs.SubjectID
	orig.Title = crs.Title
	orig.Slug = crs.Slug
	orig.Overview = crs.Overview
	return *orig, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.deleteCourse(id)
	return nil
}

// Modules

func (repo *courseRepository) QueryModules(ctx context.Context, courseID string) ([]course.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	modules := make([]course.Module, 0)
	for _, mod := range repo.db.modules {
		if mod.CourseID == courseID {
			modules = append(modules, *mod)
		}
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Order != modules[j].Order {
			return modules[i].Order < modules[j].Order
		}
		return modules[i].ID < modules[j].ID
	})
	return modules, nil
}

func (repo *courseRepository) GetModule(ctx context.Context, filter course.ModuleFilter) (course.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter == (course.ModuleFilter{}) {
		return course.Module{}, course.ErrModuleNotFound
	}
	for _, mod := range repo.db.modules {
		if filter.ID != "" && mod.ID != filter.ID {
			continue
		}
		if filter.CourseID != "" && mod.CourseID != filter.CourseID {
			continue
		}
		if filter.OwnerID != "" && !repo.ownsCourse(filter.OwnerID, mod.CourseID) {
			continue
		}
		return *mod, nil
	}
	return course.Module{}, course.ErrModuleNotFound
}

func (repo *courseRepository) ownsCourse(ownerID, courseID string) bool {
	crs, ok := repo.db.courses[courseID]
	return ok && crs.OwnerID == ownerID
}

func (repo *courseRepository) CreateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[mod.CourseID]; !ok {
		return course.Module{}, course.ErrNotFound
	}
	if mod.Order == course.AutoOrder {
		mod.Order = 0
		for _, m := range repo.db.modules {
			if m.CourseID == mod.CourseID && m.Order >= mod.Order {
				mod.Order = m.Order + 1
			}
		}
	}
	m := mod
	repo.db.modules[mod.ID] = &m
	return mod, nil
}

func (repo *courseRepository) UpdateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.modules[mod.ID]
	if !ok {
		return course.Module{}, course.ErrModuleNotFound
	}
	orig.Title = mod.Title
	orig.Description = mod.Description
	orig.Order = mod.Order
	return *orig, nil
}

func (repo *courseRepository) DeleteModules(ctx context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, id := range ids {
		repo.db.deleteModule(id)
	}
	return nil
}

func (repo *courseRepository) SetModuleOrders(ctx context.Context, ownerID string, orders map[string]int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, order := range orders {
		if mod, ok := repo.db.modules[id]; ok && repo.ownsCourse(ownerID, mod.CourseID) {
			mod.Order = order
		}
	}
	return nil
}

// Enrollment

func (repo *courseRepository) AddStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return false, course.ErrNotFound
	}
	enr := enrollment{courseID: courseID, studentID: studentID}
	if _, ok := repo.db.enrollments[enr]; ok {
		return false, nil
	}
	repo.db.enrollments[enr] = struct{}{}
	return true, nil
}

func contains(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
