package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
	cachesvc "github.com/trezcool/educa/services/cache"
	emailsvc "github.com/trezcool/educa/services/email"
	logsvc "github.com/trezcool/educa/services/logger"
	inmemdb "github.com/trezcool/educa/storage/database/inmem"
	testutil "github.com/trezcool/educa/tests"
)

type fixtures struct {
	repo       course.Repository
	usrRepo    user.Repository
	svc        *course.Service
	instructor user.User
	student    user.User
	sub        course.Subject
}

func setup(t *testing.T) fixtures {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	core.ParseEmailTemplates(nil)
	emailsvc.ResetSentMessages()

	fx := fixtures{
		repo:    inmemdb.NewCourseRepository(db),
		usrRepo: inmemdb.NewUserRepository(db),
	}
	fx.svc = course.NewService(
		fx.repo,
		inmemdb.NewTransactor(),
		cachesvc.NewMemoryCache(),
		emailsvc.NewConsoleServiceMock(),
		logsvc.NewRollbarLogger(zap.NewNop(), core.Conf),
		core.Conf,
	)
	fx.instructor = testutil.CreateUser(t, fx.usrRepo, "Instructor", "instructor", "instructor@test.cd", "", []string{user.RoleInstructor}, true)
	fx.student = testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	fx.sub = testutil.CreateSubject(t, fx.repo, "Programming", "programming")
	return fx
}

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	crs := testutil.CreateCourse(t, fx.repo, fx.sub, fx.instructor, "Go 101", "go-101")

	_, err := fx.svc.Enroll(ctx, fx.student, "lol")
	assert.Equal(t, course.ErrNotFound, err)

	enrolled, err := fx.svc.IsEnrolled(ctx, fx.student.ID, crs.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	for i := 0; i < 2; i++ {
		got, err := fx.svc.Enroll(ctx, fx.student, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, crs.ID, got.ID)
	}

	enrolled, err = fx.svc.IsEnrolled(ctx, fx.student.ID, crs.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	courses, err := fx.svc.QueryEnrolled(ctx, fx.student.ID)
	require.NoError(t, err)
	assert.Equal(t, []course.CourseSummary{{Course: crs}}, courses)

	// confirmed once
	assert.Len(t, emailsvc.SentMessages, 1)
}

func TestService_GetEnrolled(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	crs := testutil.CreateCourse(t, fx.repo, fx.sub, fx.instructor, "Go 101", "go-101")
	empty := testutil.CreateCourse(t, fx.repo, fx.sub, fx.instructor, "Go 102", "go-102")
	mod1 := testutil.CreateModule(t, fx.repo, crs, "Basics")
	mod2 := testutil.CreateModule(t, fx.repo, crs, "Concurrency")

	_, err := fx.svc.GetEnrolled(ctx, fx.student.ID, crs.ID, "")
	assert.Equal(t, course.ErrNotFound, err)

	for _, c := range []course.Course{crs, empty} {
		_, err = fx.svc.Enroll(ctx, fx.student, c.ID)
		require.NoError(t, err)
	}

	ec, err := fx.svc.GetEnrolled(ctx, fx.student.ID, crs.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []course.Module{mod1, mod2}, ec.Course.Modules)
	require.NotNil(t, ec.Module)
	assert.Equal(t, mod1, *ec.Module)

	ec, err = fx.svc.GetEnrolled(ctx, fx.student.ID, crs.ID, mod2.ID)
	require.NoError(t, err)
	require.NotNil(t, ec.Module)
	assert.Equal(t, mod2, *ec.Module)

	_, err = fx.svc.GetEnrolled(ctx, fx.student.ID, crs.ID, "lol")
	assert.Equal(t, course.ErrModuleNotFound, err)

	ec, err = fx.svc.GetEnrolled(ctx, fx.student.ID, empty.ID, "")
	require.NoError(t, err)
	assert.Nil(t, ec.Module)
}

func TestService_GetOwned(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	other := testutil.CreateUser(t, fx.usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleInstructor}, true)
	crs := testutil.CreateCourse(t, fx.repo, fx.sub, fx.instructor, "Go 101", "go-101")
	mod := testutil.CreateModule(t, fx.repo, crs, "Basics")

	got, err := fx.svc.GetOwned(ctx, fx.instructor.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, []course.Module{mod}, got.Modules)

	_, err = fx.svc.GetOwned(ctx, other.ID, crs.ID)
	assert.Equal(t, course.ErrNotFound, err)
	_, err = fx.svc.GetOwned(ctx, "", crs.ID)
	assert.Equal(t, course.ErrNotFound, err)

	gotMod, err := fx.svc.GetOwnedModule(ctx, fx.instructor.ID, mod.ID)
	require.NoError(t, err)
	assert.Equal(t, mod, gotMod)

	_, err = fx.svc.GetOwnedModule(ctx, other.ID, mod.ID)
	assert.Equal(t, course.ErrModuleNotFound, err)
}

func TestService_QueryCourses_cache(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	crs1 := testutil.CreateCourse(t, fx.repo, fx.sub, fx.instructor, "Go 101", "go-101")

	courses, err := fx.svc.QueryCourses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, courses, 1)

	// bypassing the service: still served from cache
	testutil.CreateCourse(t, fx.repo, fx.sub, fx.instructor, "Go 102", "go-102")
	courses, err = fx.svc.QueryCourses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, courses, 1)

	// through the service: cache dropped
	crs3, err := fx.svc.Create(ctx, fx.instructor.ID, course.NewCourse{SubjectID: fx.sub.ID, Title: "Go 103", Slug: "go-103"})
	require.NoError(t, err)
	courses, err = fx.svc.QueryCourses(ctx, "programming")
	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, crs3.ID, courses[0].ID)
	assert.Equal(t, crs1.ID, courses[2].ID)

	subjects, err := fx.svc.QuerySubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []course.SubjectSummary{{Subject: fx.sub, TotalCourses: 3}}, subjects)

	require.NoError(t, fx.svc.Delete(ctx, crs3))
	subjects, err = fx.svc.QuerySubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []course.SubjectSummary{{Subject: fx.sub, TotalCourses: 2}}, subjects)

	_, err = fx.svc.QueryCourses(ctx, "lol")
	assert.Equal(t, course.ErrSubjectNotFound, err)
}

func TestService_UncacheCatalog(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	other := testutil.CreateSubject(t, fx.repo, "Mathematics", "mathematics")
	testutil.CreateCourse(t, fx.repo, fx.sub, fx.instructor, "Go 101", "go-101")
	testutil.CreateCourse(t, fx.repo, other, fx.instructor, "Algebra", "algebra")

	for _, slug := range []string{"", "programming", "mathematics"} {
		courses, err := fx.svc.QueryCourses(ctx, slug)
		require.NoError(t, err)
		assert.NotEmpty(t, courses, slug)
	}
	_, err := fx.svc.QuerySubjects(ctx)
	require.NoError(t, err)

	// the owner's courses go with them
	require.NoError(t, fx.usrRepo.DeleteUsersByID(ctx, fx.instructor.ID))
	courses, err := fx.svc.QueryCourses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, courses, 2, "served from cache")

	require.NoError(t, fx.svc.UncacheCatalog(ctx))
	for _, slug := range []string{"", "programming", "mathematics"} {
		courses, err := fx.svc.QueryCourses(ctx, slug)
		require.NoError(t, err)
		assert.Empty(t, courses, slug)
	}
	subjects, err := fx.svc.QuerySubjects(ctx)
	require.NoError(t, err)
	for _, sub := range subjects {
		assert.Zero(t, sub.TotalCourses, sub.Slug)
	}
}

func TestService_UpdateModules(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	crs := testutil.CreateCourse(t, fx.repo, fx.sub, fx.instructor, "Go 101", "go-101")
	mod1 := testutil.CreateModule(t, fx.repo, crs, "Basics")
	mod2 := testutil.CreateModule(t, fx.repo, crs, "Concurrency")

	fs, err := fx.svc.ModuleFormSet(ctx, crs)
	require.NoError(t, err)
	require.Len(t, fs.Forms, 2+course.ExtraModuleForms)

	// duplicates reject the whole set
	_, err = fx.svc.UpdateModules(ctx, crs, course.ModuleFormSet{Forms: []course.ModuleForm{
		{ID: mod1.ID, Title: "One"},
		{ID: mod1.ID, Title: "Two"},
		{Title: "Three"},
	}})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []core.FieldError{{Field: "forms.1.id", Error: "duplicate module"}}, vErr.Fields)

	modules, err := fx.svc.UpdateModules(ctx, crs, course.ModuleFormSet{Forms: []course.ModuleForm{
		{ID: mod2.ID, Title: "Concurrency", Delete: true},
		{ID: strings.ToUpper(mod1.ID), Title: " Basics "}, // unchanged once cleaned
		{Title: " Testing ", Description: " table driven "},
		{},
	}})
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, mod1, modules[0])
	assert.Equal(t, "Testing", modules[1].Title)
	assert.Equal(t, "table driven", modules[1].Description)
	assert.Equal(t, 2, modules[1].Order)
}

func TestValidateOrders(t *testing.T) {
	id := "c0a5c8a4-8f5b-4bd4-9d3c-46d31e8a9e2a"
	assert.NoError(t, course.ValidateOrders(map[string]int{id: 0}))
	assert.NoError(t, course.ValidateOrders(nil))

	err := course.ValidateOrders(map[string]int{id: -1})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []core.FieldError{{Field: id, Error: "order must be 0 or greater"}}, vErr.Fields)

	err = course.ValidateOrders(map[string]int{"lol": 1})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []core.FieldError{{Field: "lol", Error: "invalid id"}}, vErr.Fields)
}
