package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/storage/database"
)

type (
	subjectRow struct {
		ID           string `db:"id"`
		Title        string `db:"title"`
		Slug         string `db:"slug"`
		TotalCourses int    `db:"total_courses"`
	}

	courseRow struct {
		ID           string    `db:"id"`
		SubjectID    string    `db:"subject_id"`
		OwnerID      string    `db:"owner_id"`
		Title        string    `db:"title"`
		Slug         string    `db:"slug"`
		Overview     string    `db:"overview"`
		CreatedAt    time.Time `db:"created_at"`
		TotalModules int       `db:"total_modules"`
	}

	moduleRow struct {
		ID          string `db:"id"`
		CourseID    string `db:"course_id"`
		Title       string `db:"title"`
		Description string `db:"description"`
		Order       int    `db:"order"`
	}
)

func (row subjectRow) toSubject() course.Subject {
	return course.Subject{ID: row.ID, Title: row.Title, Slug: row.Slug}
}

func toCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:        crs.ID,
		SubjectID: crs.SubjectID,
		OwnerID:   crs.OwnerID,
		Title:     crs.Title,
		Slug:      crs.Slug,
		Overview:  crs.Overview,
		CreatedAt: crs.CreatedAt.UTC(),
	}
}

func (row courseRow) toCourse() course.Course {
	return course.Course{
		ID:        row.ID,
		SubjectID: row.SubjectID,
		OwnerID:   row.OwnerID,
		Title:     row.Title,
		Slug:      row.Slug,
		Overview:  row.Overview,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (row moduleRow) toModule() course.Module {
	return course.Module{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		Description: row.Description,
		Order:       row.Order,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

// Subjects

func (repo *courseRepository) CreateSubject(ctx context.Context, sub course.Subject) (course.Subject, error) {
	q := `INSERT INTO subject (id, title, slug) VALUES (:id, :title, :slug)`
	row := subjectRow{ID: sub.ID, Title: sub.Title, Slug: sub.Slug}
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, row); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return course.Subject{}, course.ErrSlugExists
		}
		return course.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *courseRepository) QuerySubjects(ctx context.Context) ([]course.SubjectSummary, error) {
	q := `SELECT s.id, s.title, s.slug, COUNT(c.id) AS total_courses
		FROM subject s LEFT JOIN course c ON c.subject_id = s.id
		GROUP BY s.id ORDER BY s.title, s.id`
	var rows []subjectRow
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]course.SubjectSummary, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, course.SubjectSummary{Subject: row.toSubject(), TotalCourses: row.TotalCourses})
	}
	return subjects, nil
}

func (repo *courseRepository) GetSubject(ctx context.Context, filter course.SubjectFilter) (course.Subject, error) {
	var where []string
	var args []interface{}
	if filter.ID != "" {
		where = append(where, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.Slug != "" {
		where = append(where, "slug = ?")
		args = append(args, filter.Slug)
	}
	if len(where) == 0 {
		return course.Subject{}, course.ErrSubjectNotFound
	}

	exec := database.Executor(ctx, repo.db)
	q := `SELECT id, title, slug FROM subject WHERE ` + strings.Join(where, " AND ")
	var row subjectRow
	if err := sqlx.GetContext(ctx, exec, &row, exec.Rebind(q), args...); err != nil {
		return course.Subject{}, trapNoRowsErr(err, course.ErrSubjectNotFound, "finding subject")
	}
	return row.toSubject(), nil
}

func (repo *courseRepository) SubjectSlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &exists,
		`SELECT EXISTS (SELECT 1 FROM subject WHERE slug = $1)`, slug)
	return exists, errors.Wrap(err, "checking subject slug")
}

// Courses

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `INSERT INTO course (id, subject_id, owner_id, title, slug, overview, created_at)
		VALUES (:id, :subject_id, :owner_id, :title, :slug, :overview, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, toCourseRow(crs)); err != nil {
		return course.Course{}, trapCourseErr(err, "inserting course")
	}
	return crs, nil
}

func courseWhere(filter course.CourseFilter) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	if filter.ID != "" {
		where = append(where, "c.id = ?")
		args = append(args, filter.ID)
	}
	if filter.Slug != "" {
		where = append(where, "c.slug = ?")
		args = append(args, filter.Slug)
	}
	if filter.OwnerID != "" {
		where = append(where, "c.owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.SubjectID != "" {
		where = append(where, "c.subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.StudentID != "" {
		where = append(where, "c.id IN (SELECT course_id FROM course_student WHERE student_id = ?)")
		args = append(args, filter.StudentID)
	}
	return where, args
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.CourseFilter) ([]course.CourseSummary, error) {
	where, args := courseWhere(filter)
	q := `SELECT c.id, c.subject_id, c.owner_id, c.title, c.slug, c.overview, c.created_at, COUNT(m.id) AS total_modules
		FROM course c LEFT JOIN module m ON m.course_id = c.id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " GROUP BY c.id ORDER BY c.created_at DESC, c.id"

	exec := database.Executor(ctx, repo.db)
	var rows []courseRow
	if err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.CourseSummary, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, course.CourseSummary{Course: row.toCourse(), TotalModules: row.TotalModules})
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.CourseFilter) (course.Course, error) {
	where, args := courseWhere(filter)
	if len(where) == 0 {
		return course.Course{}, course.ErrNotFound
	}
	q := `SELECT c.id, c.subject_id, c.owner_id, c.title, c.slug, c.overview, c.created_at
		FROM course c WHERE ` + strings.Join(where, " AND ")

	exec := database.Executor(ctx, repo.db)
	var row courseRow
	if err := sqlx.GetContext(ctx, exec, &row, exec.Rebind(q), args...); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) CourseSlugExists(ctx context.Context, slug string, excludedIDs ...string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM course WHERE slug = ?`
	args := []interface{}{slug}
	if len(excludedIDs) > 0 {
		q += ` AND id NOT IN (?)`
		args = append(args, excludedIDs)
	}
	q += `)`
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return false, errors.Wrap(err, "building slug query")
	}

	exec := database.Executor(ctx, repo.db)
	var exists bool
	err = sqlx.GetContext(ctx, exec, &exists, exec.Rebind(q), args...)
	return exists, errors.Wrap(err, "checking course slug")
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `UPDATE course SET subject_id = :subject_id, title = :title, slug = :slug, overview = :overview WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, toCourseRow(crs))
	if err != nil {
		return course.Course{}, trapCourseErr(err, "updating course")
	}
	if err := checkAffected(res, course.ErrNotFound); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, course.ErrNotFound)
}

// Modules

const moduleColumns = `m.id, m.course_id, m.title, m.description, m."order"`

func (repo *courseRepository) QueryModules(ctx context.Context, courseID string) ([]course.Module, error) {
	q := `SELECT ` + moduleColumns + ` FROM module m WHERE m.course_id = $1 ORDER BY m."order", m.id`
	var rows []moduleRow
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	modules := make([]course.Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, row.toModule())
	}
	return modules, nil
}

func (repo *courseRepository) GetModule(ctx context.Context, filter course.ModuleFilter) (course.Module, error) {
	var where []string
	var args []interface{}
	if filter.ID != "" {
		where = append(where, "m.id = ?")
		args = append(args, filter.ID)
	}
	if filter.CourseID != "" {
		where = append(where, "m.course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.OwnerID != "" {
		where = append(where, "c.owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if len(where) == 0 {
		return course.Module{}, course.ErrModuleNotFound
	}
	q := `SELECT ` + moduleColumns + ` FROM module m JOIN course c ON c.id = m.course_id WHERE ` + strings.Join(where, " AND ")

	exec := database.Executor(ctx, repo.db)
	var row moduleRow
	if err := sqlx.GetContext(ctx, exec, &row, exec.Rebind(q), args...); err != nil {
		return course.Module{}, trapNoRowsErr(err, course.ErrModuleNotFound, "finding module")
	}
	return row.toModule(), nil
}

func (repo *courseRepository) CreateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	exec := database.Executor(ctx, repo.db)
	if mod.Order == course.AutoOrder {
		q := `SELECT COALESCE(MAX("order") + 1, 0) FROM module WHERE course_id = $1`
		if err := sqlx.GetContext(ctx, exec, &mod.Order, q, mod.CourseID); err != nil {
			return course.Module{}, errors.Wrap(err, "computing module order")
		}
	}

	q := `INSERT INTO module (id, course_id, title, description, "order")
		VALUES (:id, :course_id, :title, :description, :order)`
	row := moduleRow{ID: mod.ID, CourseID: mod.CourseID, Title: mod.Title, Description: mod.Description, Order: mod.Order}
	if _, err := sqlx.NamedExecContext(ctx, exec, q, row); err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return mod, nil
}

func (repo *courseRepository) UpdateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	q := `UPDATE module SET title = :title, description = :description, "order" = :order WHERE id = :id`
	row := moduleRow{ID: mod.ID, CourseID: mod.CourseID, Title: mod.Title, Description: mod.Description, Order: mod.Order}
	res, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, row)
	if err != nil {
		return course.Module{}, errors.Wrap(err, "updating module")
	}
	if err := checkAffected(res, course.ErrModuleNotFound); err != nil {
		return course.Module{}, err
	}
	return mod, nil
}

func (repo *courseRepository) DeleteModules(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM module WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	exec := database.Executor(ctx, repo.db)
	_, err = exec.ExecContext(ctx, exec.Rebind(q), args...)
	return errors.Wrap(err, "deleting modules")
}

func (repo *courseRepository) SetModuleOrders(ctx context.Context, ownerID string, orders map[string]int) error {
	q := `UPDATE module SET "order" = $1
		WHERE id = $2 AND course_id IN (SELECT id FROM course WHERE owner_id = $3)`
	exec := database.Executor(ctx, repo.db)
	for id, order := range orders {
		if _, err := exec.ExecContext(ctx, q, order, id, ownerID); err != nil {
			return errors.Wrap(err, "setting module order")
		}
	}
	return nil
}

// Enrollment

func (repo *courseRepository) AddStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	q := `INSERT INTO course_student (course_id, student_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (course_id, student_id) DO NOTHING`
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, q, courseID, studentID, time.Now().UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting course student")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading affected rows")
	}
	return n > 0, nil
}

// trapCourseErr maps the course slug unique violation to course.ErrSlugExists.
func trapCourseErr(err error, msg string) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return course.ErrSlugExists
	}
	return errors.Wrap(err, msg)
}
