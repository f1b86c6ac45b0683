package content_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
	cachesvc "github.com/trezcool/educa/services/cache"
	emailsvc "github.com/trezcool/educa/services/email"
	logsvc "github.com/trezcool/educa/services/logger"
	storagesvc "github.com/trezcool/educa/services/storage"
	inmemdb "github.com/trezcool/educa/storage/database/inmem"
	testutil "github.com/trezcool/educa/tests"
)

type fixtures struct {
	repo       content.Repository
	courseRepo course.Repository
	courseSvc  *course.Service
	svc        *content.Service
	mediaDir   string
	instructor user.User
	other      user.User
	student    user.User
	crs        course.Course
	mod        course.Module
}

func setup(t *testing.T) fixtures {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	core.ParseEmailTemplates(nil)

	conf := *core.Conf
	conf.Storage.Dir = t.TempDir()
	conf.Storage.BaseURL = "/media"
	logger := logsvc.NewRollbarLogger(zap.NewNop(), &conf)
	tx := inmemdb.NewTransactor()

	fx := fixtures{
		repo:       inmemdb.NewContentRepository(db),
		courseRepo: inmemdb.NewCourseRepository(db),
		mediaDir:   conf.Storage.Dir,
	}
	fx.courseSvc = course.NewService(fx.courseRepo, tx, cachesvc.NoopCache{}, emailsvc.NewConsoleServiceMock(), logger, &conf)
	fx.svc = content.NewService(fx.repo, fx.courseSvc, tx, storagesvc.NewLocalStorage(&conf), logger)

	usrRepo := inmemdb.NewUserRepository(db)
	fx.instructor = testutil.CreateUser(t, usrRepo, "Instructor", "instructor", "instructor@test.cd", "", []string{user.RoleInstructor}, true)
	fx.other = testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleInstructor}, true)
	fx.student = testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	sub := testutil.CreateSubject(t, fx.courseRepo, "Programming", "programming")
	fx.crs = testutil.CreateCourse(t, fx.courseRepo, sub, fx.instructor, "Go 101", "go-101")
	fx.mod = testutil.CreateModule(t, fx.courseRepo, fx.crs, "Basics")
	return fx
}

func (fx fixtures) mediaPath(location string) string {
	return filepath.Join(fx.mediaDir, filepath.FromSlash(strings.TrimPrefix(location, "/media/")))
}

func TestLookupItemType(t *testing.T) {
	for _, name := range []string{"text", "video", "image", "file"} {
		typ, ok := content.LookupItemType(name)
		assert.True(t, ok, name)
		assert.Equal(t, content.ItemType(name), typ)
		assert.NotNil(t, typ.NewForm(), name)
		assert.Equal(t, typ, content.NewItem(typ).Type())
	}
	for _, name := range []string{"", "Text", "course", "user", "content"} {
		_, ok := content.LookupItemType(name)
		assert.False(t, ok, name)
	}
	assert.Nil(t, content.NewItem("lol"))
}

func TestService_CreateItem(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	_, err := fx.svc.CreateItem(ctx, fx.instructor.ID, fx.mod.ID, "course", &content.TextForm{Title: "Intro", Content: "Hello"})
	assert.Equal(t, content.ErrUnknownItemType, err)

	_, err = fx.svc.CreateItem(ctx, fx.other.ID, fx.mod.ID, "text", &content.TextForm{Title: "Intro", Content: "Hello"})
	assert.Equal(t, course.ErrModuleNotFound, err)

	text, err := fx.svc.CreateItem(ctx, fx.instructor.ID, fx.mod.ID, "text", &content.TextForm{Title: "Intro", Content: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, 0, text.Order)
	assert.Equal(t, fx.instructor.ID, text.Item.Base().OwnerID)

	img, err := fx.svc.CreateItem(ctx, fx.instructor.ID, fx.mod.ID, "image", &content.FileForm{
		Title:  "Gopher",
		Upload: &content.Upload{Filename: "gopher.png", ContentType: "image/png", Size: 3, Reader: strings.NewReader("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, img.Order)
	loc := img.Item.(*content.Image).File
	assert.True(t, strings.HasPrefix(loc, "/media/images/gopher-"), loc)
	assert.FileExists(t, fx.mediaPath(loc))

	mc, err := fx.svc.ModuleContents(ctx, fx.instructor.ID, fx.mod.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.mod, mc.Module)
	require.Len(t, mc.Contents, 2)
	assert.Equal(t, text.ID, mc.Contents[0].ID)
	assert.Equal(t, img.ID, mc.Contents[1].ID)
}

func TestService_GetItem(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	text := testutil.CreateText(t, fx.repo, fx.mod, fx.instructor, "Intro", "Hello")
	// an item of another owner, placed in the instructor's module
	foreign := testutil.CreateText(t, fx.repo, fx.mod, fx.other, "Spam", "Buy now")

	got, err := fx.svc.GetItem(ctx, fx.instructor.ID, fx.mod.ID, "text", text.ItemID)
	require.NoError(t, err)
	assert.Equal(t, text, got)

	tests := []struct {
		name                      string
		ownerID, typeName, itemID string
		wantErr                   error
	}{
		{"unknown type", fx.instructor.ID, "lol", text.ItemID, content.ErrUnknownItemType},
		{"wrong type", fx.instructor.ID, "video", text.ItemID, content.ErrItemNotFound},
		{"invalid id", fx.instructor.ID, "text", "lol", content.ErrItemNotFound},
		{"module not owned", fx.other.ID, "text", text.ItemID, course.ErrModuleNotFound},
		{"item not owned", fx.instructor.ID, "text", foreign.ItemID, content.ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.GetItem(ctx, tt.ownerID, fx.mod.ID, tt.typeName, tt.itemID)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestService_UpdateItem(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	f, err := fx.svc.CreateItem(ctx, fx.instructor.ID, fx.mod.ID, "file", &content.FileForm{
		Title:  "Syllabus",
		Upload: &content.Upload{Filename: "syllabus.pdf", ContentType: "application/pdf", Size: 3, Reader: strings.NewReader("pdf")},
	})
	require.NoError(t, err)
	origLoc := f.Item.(*content.File).File

	// no upload: file kept
	f, err = fx.svc.UpdateItem(ctx, fx.instructor.ID, fx.mod.ID, "file", f.ItemID, &content.FileForm{Title: "Syllabus v2"})
	require.NoError(t, err)
	assert.Equal(t, "Syllabus v2", f.Item.Base().Title)
	assert.Equal(t, origLoc, f.Item.(*content.File).File)

	// upload: file replaced
	f, err = fx.svc.UpdateItem(ctx, fx.instructor.ID, fx.mod.ID, "file", f.ItemID, &content.FileForm{
		Title:  "Syllabus v3",
		Upload: &content.Upload{Filename: "syllabus-v3.pdf", ContentType: "application/pdf", Size: 3, Reader: strings.NewReader("pdf")},
	})
	require.NoError(t, err)
	newLoc := f.Item.(*content.File).File
	assert.NotEqual(t, origLoc, newLoc)
	assert.FileExists(t, fx.mediaPath(newLoc))
	_, err = os.Stat(fx.mediaPath(origLoc))
	assert.True(t, os.IsNotExist(err))

	stored, err := fx.repo.GetItem(ctx, content.TypeFile, f.ItemID)
	require.NoError(t, err)
	assert.Equal(t, "Syllabus v3", stored.Base().Title)
	assert.Equal(t, newLoc, stored.(*content.File).File)
}

func TestService_formMismatch(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	text := testutil.CreateText(t, fx.repo, fx.mod, fx.instructor, "Intro", "Hello")

	createTests := []struct {
		name     string
		typeName string
		form     content.Form
	}{
		{"text form for video", "video", &content.TextForm{Title: "Intro", Content: "Hello"}},
		{"video form for text", "text", &content.VideoForm{Title: "Talk", URL: "https://go.dev/talks"}},
		{"file form for text", "text", &content.FileForm{Title: "Syllabus"}},
		{"text form for image", "image", &content.TextForm{Title: "Intro", Content: "Hello"}},
		{"no form", "text", nil},
		{"nil form", "text", (*content.TextForm)(nil)},
	}
	for _, tt := range createTests {
		t.Run("create: "+tt.name, func(t *testing.T) {
			_, err := fx.svc.CreateItem(ctx, fx.instructor.ID, fx.mod.ID, tt.typeName, tt.form)
			assert.Equal(t, content.ErrFormMismatch, err)
		})
	}

	t.Run("update", func(t *testing.T) {
		_, err := fx.svc.UpdateItem(ctx, fx.instructor.ID, fx.mod.ID, "text", text.ItemID, &content.VideoForm{Title: "Talk", URL: "https://go.dev/talks"})
		assert.Equal(t, content.ErrFormMismatch, err)

		stored, err := fx.repo.GetItem(ctx, content.TypeText, text.ItemID)
		require.NoError(t, err)
		assert.Equal(t, "Intro", stored.Base().Title)
	})

	mc, err := fx.svc.ModuleContents(ctx, fx.instructor.ID, fx.mod.ID)
	require.NoError(t, err)
	assert.Len(t, mc.Contents, 1)

	// both image and file items take a FileForm
	for _, typeName := range []string{"image", "file"} {
		typ, _ := content.LookupItemType(typeName)
		assert.IsType(t, &content.FileForm{}, typ.NewForm(), typeName)
	}
}

func TestService_DeleteContent(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	img, err := fx.svc.CreateItem(ctx, fx.instructor.ID, fx.mod.ID, "image", &content.FileForm{
		Title:  "Gopher",
		Upload: &content.Upload{Filename: "gopher.png", ContentType: "image/png", Size: 3, Reader: strings.NewReader("png")},
	})
	require.NoError(t, err)

	assert.Equal(t, content.ErrNotFound, fx.svc.DeleteContent(ctx, fx.other.ID, img.ID))
	assert.Equal(t, content.ErrNotFound, fx.svc.DeleteContent(ctx, fx.instructor.ID, "lol"))

	require.NoError(t, fx.svc.DeleteContent(ctx, fx.instructor.ID, img.ID))
	_, err = fx.repo.GetItem(ctx, content.TypeImage, img.ItemID)
	assert.Equal(t, content.ErrItemNotFound, err)
	_, err = os.Stat(fx.mediaPath(img.Item.(*content.Image).File))
	assert.True(t, os.IsNotExist(err))
}

func TestService_ReorderContents(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	text1 := testutil.CreateText(t, fx.repo, fx.mod, fx.instructor, "Intro", "Hello")
	text2 := testutil.CreateText(t, fx.repo, fx.mod, fx.instructor, "Outro", "Bye")

	orders := map[string]int{text1.ID: 1, text2.ID: 0}
	require.NoError(t, fx.svc.ReorderContents(ctx, fx.other.ID, orders))
	mc, err := fx.svc.ModuleContents(ctx, fx.instructor.ID, fx.mod.ID)
	require.NoError(t, err)
	assert.Equal(t, text1.ID, mc.Contents[0].ID)

	require.NoError(t, fx.svc.ReorderContents(ctx, fx.instructor.ID, orders))
	mc, err = fx.svc.ModuleContents(ctx, fx.instructor.ID, fx.mod.ID)
	require.NoError(t, err)
	assert.Equal(t, text2.ID, mc.Contents[0].ID)
	assert.Equal(t, text1.ID, mc.Contents[1].ID)

	var vErr *core.ValidationError
	assert.ErrorAs(t, fx.svc.ReorderContents(ctx, fx.instructor.ID, map[string]int{"lol": 0}), &vErr)
}

func TestService_EnrolledContents(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	student := fx.student
	mod2 := testutil.CreateModule(t, fx.courseRepo, fx.crs, "Concurrency")
	text := testutil.CreateText(t, fx.repo, fx.mod, fx.instructor, "Intro", "Hello")

	_, err := fx.svc.EnrolledModuleContents(ctx, student.ID, fx.crs.ID, "")
	assert.Equal(t, course.ErrNotFound, err)
	_, err = fx.svc.EnrolledCourseContents(ctx, student.ID, fx.crs.ID)
	assert.Equal(t, course.ErrNotFound, err)

	_, err = fx.courseSvc.Enroll(ctx, student, fx.crs.ID)
	require.NoError(t, err)

	em, err := fx.svc.EnrolledModuleContents(ctx, student.ID, fx.crs.ID, "")
	require.NoError(t, err)
	assert.Equal(t, fx.mod, *em.Module)
	assert.Equal(t, []content.Content{text}, em.Contents)

	em, err = fx.svc.EnrolledModuleContents(ctx, student.ID, fx.crs.ID, mod2.ID)
	require.NoError(t, err)
	assert.Equal(t, mod2, *em.Module)
	assert.Empty(t, em.Contents)
	assert.NotNil(t, em.Contents)

	cc, err := fx.svc.EnrolledCourseContents(ctx, student.ID, fx.crs.ID)
	require.NoError(t, err)
	assert.Nil(t, cc.Course.Modules)
	assert.Equal(t, []content.ModuleContents{
		{Module: fx.mod, Contents: []content.Content{text}},
		{Module: mod2, Contents: []content.Content{}},
	}, cc.Modules)
}
