package tests

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/educa/apps/api/echo"
	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
	testutil "github.com/trezcool/educa/tests"
)

var pngData = []byte("\x89PNG\r\n\x1a\nnot really a png")

// mediaPath returns the path of a file stored at location by the local storage.
func mediaPath(location string) string {
	return filepath.Join(mediaDir, filepath.FromSlash(strings.TrimPrefix(location, "/media/")))
}

type contentFixtures struct {
	instructor, other, student user.User
	crs                        course.Course
	mod, othersMod             course.Module
}

func createContentFixtures(t *testing.T) contentFixtures {
	var fx contentFixtures
	fx.instructor = testutil.CreateUser(t, usrRepo, "Instructor", "instructor", "instructor@test.cd", "", []string{user.RoleInstructor}, true)
	fx.other = testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleInstructor}, true)
	fx.student = testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)

	sub := testutil.CreateSubject(t, courseRepo, "Programming", "programming")
	fx.crs = testutil.CreateCourse(t, courseRepo, sub, fx.instructor, "Go 101", "go-101")
	fx.mod = testutil.CreateModule(t, courseRepo, fx.crs, "Basics")
	othersCrs := testutil.CreateCourse(t, courseRepo, sub, fx.other, "Rust 101", "rust-101")
	fx.othersMod = testutil.CreateModule(t, courseRepo, othersCrs, "Ownership")
	return fx
}

func Test_contentApi_create(t *testing.T) {
	app := setup(t)
	fx := createContentFixtures(t)
	token := getToken(t, fx.instructor)
	path := func(mod course.Module, modelName string) string {
		return "/v1/manage/modules/" + mod.ID + "/content/" + modelName
	}

	type fldErrs map[string]string
	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: path(fx.mod, "text"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Instructor required", method: http.MethodPost, path: path(fx.mod, "text"), token: getToken(t, fx.student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "someone else's module", method: http.MethodPost, path: path(fx.othersMod, "text"), token: token,
			body: []byte(`{"title": "Intro", "content": "Hello"}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: course.ErrModuleNotFound.Error()}),
		},
		{
			name: "unknown type", method: http.MethodPost, path: path(fx.mod, "course"), token: token,
			body: []byte(`{"title": "Intro"}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: content.ErrUnknownItemType.Error()}),
		},
		{
			name: "text: required fields", method: http.MethodPost, path: path(fx.mod, "text"), token: token,
			body: []byte(`{"title": " "}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, fldErrs{"title": "this field may not be blank", "content": "this field may not be blank"}),
		},
		{
			name: "video: invalid url", method: http.MethodPost, path: path(fx.mod, "video"), token: token,
			body: []byte(`{"title": "Talk", "url": "lol"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, fldErrs{"url": "enter a valid URL"}),
		},
	})

	t.Run("text & video are appended", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path(fx.mod, "text"), token, []byte(`{"title": "Intro", "content": "Hello"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var text content.Content
		unmarshal(t, rec, &text)
		assert.Equal(t, fx.mod.ID, text.ModuleID)
		assert.Equal(t, 0, text.Order)
		assert.Equal(t, content.TypeText, text.ItemType)
		require.IsType(t, &content.Text{}, text.Item)
		assert.Equal(t, fx.instructor.ID, text.Item.Base().OwnerID)
		assert.Equal(t, "Intro", text.Item.Base().Title)
		assert.Equal(t, "Hello", text.Item.(*content.Text).Content)

		req, rec = newAuthRequest(http.MethodPost, path(fx.mod, "video"), token, []byte(`{"title": "Talk", "url": "https://www.youtube.com/watch?v=f6kdp27TYZs"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var video content.Content
		unmarshal(t, rec, &video)
		assert.Equal(t, 1, video.Order)
		require.IsType(t, &content.Video{}, video.Item)
		assert.Equal(t, "https://www.youtube.com/watch?v=f6kdp27TYZs", video.Item.(*content.Video).URL)
	})

	t.Run("image: no file", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, path(fx.mod, "image"), token, map[string]string{"title": "Gopher"}, nil)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, fldErrs{"file": "no file was submitted"})}, rec)
	})

	t.Run("image: not an image", func(t *testing.T) {
		file := &uploadFile{filename: "notes.txt", contentType: "text/plain", content: []byte("lol")}
		req, rec := newMultipartRequest(t, http.MethodPost, path(fx.mod, "image"), token, map[string]string{"title": "Gopher"}, file)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, fldErrs{
			"file": "upload a valid image, the file you uploaded was either not an image or a corrupted image",
		})}, rec)
	})

	t.Run("image: disguised text", func(t *testing.T) {
		file := &uploadFile{filename: "gopher.png", contentType: "image/png", content: []byte("lol, not a png")}
		req, rec := newMultipartRequest(t, http.MethodPost, path(fx.mod, "image"), token, map[string]string{"title": "Gopher"}, file)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, fldErrs{
			"file": "upload a valid image, the file you uploaded was either not an image or a corrupted image",
		})}, rec)
	})

	t.Run("file: empty", func(t *testing.T) {
		file := &uploadFile{filename: "notes.txt", contentType: "text/plain"}
		req, rec := newMultipartRequest(t, http.MethodPost, path(fx.mod, "file"), token, map[string]string{"title": "Notes"}, file)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, fldErrs{"file": "the submitted file is empty"})}, rec)
	})

	t.Run("image: stored & served", func(t *testing.T) {
		file := &uploadFile{filename: "My Gopher.PNG", contentType: "image/png", content: pngData}
		req, rec := newMultipartRequest(t, http.MethodPost, path(fx.mod, "image"), token, map[string]string{"title": "Gopher"}, file)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var img content.Content
		unmarshal(t, rec, &img)
		assert.Equal(t, content.TypeImage, img.ItemType)
		require.IsType(t, &content.Image{}, img.Item)
		loc := img.Item.(*content.Image).File
		assert.Regexp(t, `^/media/images/my-gopher-[0-9a-f]{8}\.png$`, loc)

		stored, err := os.ReadFile(mediaPath(loc))
		require.NoError(t, err)
		assert.Equal(t, pngData, stored)

		req, rec = newRequest(http.MethodGet, loc)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pngData, rec.Body.Bytes())
	})

	t.Run("file: stored", func(t *testing.T) {
		file := &uploadFile{filename: "syllabus.pdf", contentType: "application/pdf", content: []byte("%PDF-1.4")}
		req, rec := newMultipartRequest(t, http.MethodPost, path(fx.mod, "file"), token, map[string]string{"title": "Syllabus"}, file)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var f content.Content
		unmarshal(t, rec, &f)
		require.IsType(t, &content.File{}, f.Item)
		loc := f.Item.(*content.File).File
		assert.True(t, strings.HasPrefix(loc, "/media/files/syllabus-"), loc)
		assert.FileExists(t, mediaPath(loc))
	})
}

func Test_contentApi_detail(t *testing.T) {
	app := setup(t)
	fx := createContentFixtures(t)
	token := getToken(t, fx.instructor)

	text := testutil.CreateText(t, contentRepo, fx.mod, fx.instructor, "Intro", "Hello")
	othersText := testutil.CreateText(t, contentRepo, fx.othersMod, fx.other, "Intro", "Hola")
	path := func(mod course.Module, modelName, id string) string {
		return "/v1/manage/modules/" + mod.ID + "/content/" + modelName + "/" + id
	}
	itemNotFound := marchallObj(t, httpErr{Error: content.ErrItemNotFound.Error()})

	runHTTPTests(t, app, []httpTest{
		{name: "retrieve", method: http.MethodGet, path: path(fx.mod, "text", text.ItemID), token: token, wantData: marchallObj(t, text)},
		{name: "retrieve as wrong type", method: http.MethodGet, path: path(fx.mod, "video", text.ItemID), token: token, wantCode: http.StatusNotFound, wantData: itemNotFound},
		{name: "retrieve unknown", method: http.MethodGet, path: path(fx.mod, "text", "lol"), token: token, wantCode: http.StatusNotFound, wantData: itemNotFound},
		{
			name: "retrieve someone else's", method: http.MethodGet, path: path(fx.othersMod, "text", othersText.ItemID), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: course.ErrModuleNotFound.Error()}),
		},
		{
			name: "retrieve from another module", method: http.MethodGet, path: path(fx.mod, "text", othersText.ItemID), token: token,
			wantCode: http.StatusNotFound, wantData: itemNotFound,
		},
		{
			name: "update: invalid", method: http.MethodPut, path: path(fx.mod, "text", text.ItemID), token: token,
			body: []byte(`{"title": "Intro"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"content": "this field may not be blank"}),
		},
	})

	t.Run("update text", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path(fx.mod, "text", text.ItemID), token, []byte(`{"title": "Welcome", "content": "Hi there"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got content.Content
		unmarshal(t, rec, &got)
		assert.Equal(t, text.ID, got.ID)
		assert.Equal(t, text.Order, got.Order)
		require.IsType(t, &content.Text{}, got.Item)
		item := got.Item.(*content.Text)
		assert.Equal(t, "Welcome", item.Title)
		assert.Equal(t, "Hi there", item.Content)
		assert.Equal(t, text.Item.Base().CreatedAt, item.CreatedAt)
		assert.True(t, item.UpdatedAt.After(item.CreatedAt))
	})

	t.Run("update image", func(t *testing.T) {
		file := &uploadFile{filename: "gopher.png", contentType: "image/png", content: pngData}
		req, rec := newMultipartRequest(t, http.MethodPost, "/v1/manage/modules/"+fx.mod.ID+"/content/image", token, map[string]string{"title": "Gopher"}, file)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var img content.Content
		unmarshal(t, rec, &img)
		origLoc := img.Item.(*content.Image).File

		// no new file: kept
		req, rec = newMultipartRequest(t, http.MethodPut, path(fx.mod, "image", img.ItemID), token, map[string]string{"title": "Gopher, again"}, nil)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &img)
		assert.Equal(t, "Gopher, again", img.Item.Base().Title)
		assert.Equal(t, origLoc, img.Item.(*content.Image).File)
		assert.FileExists(t, mediaPath(origLoc))

		// new file: replaced
		file = &uploadFile{filename: "gopher2.png", contentType: "image/png", content: pngData}
		req, rec = newMultipartRequest(t, http.MethodPut, path(fx.mod, "image", img.ItemID), token, map[string]string{"title": "Gopher 2"}, file)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &img)
		newLoc := img.Item.(*content.Image).File
		assert.NotEqual(t, origLoc, newLoc)
		assert.FileExists(t, mediaPath(newLoc))
		_, err := os.Stat(mediaPath(origLoc))
		assert.True(t, os.IsNotExist(err), "old file not deleted")
	})
}

func Test_contentApi_query(t *testing.T) {
	app := setup(t)
	fx := createContentFixtures(t)

	text1 := testutil.CreateText(t, contentRepo, fx.mod, fx.instructor, "Intro", "Hello")
	text2 := testutil.CreateText(t, contentRepo, fx.mod, fx.instructor, "Outro", "Bye")
	testutil.CreateText(t, contentRepo, fx.othersMod, fx.other, "Intro", "Hola")

	runHTTPTests(t, app, []httpTest{
		{
			name: "module contents", method: http.MethodGet, path: "/v1/manage/modules/" + fx.mod.ID + "/contents", token: getToken(t, fx.instructor),
			wantData: marchallObj(t, content.ModuleContents{Module: fx.mod, Contents: []content.Content{text1, text2}}),
		},
		{
			name: "someone else's module", method: http.MethodGet, path: "/v1/manage/modules/" + fx.othersMod.ID + "/contents", token: getToken(t, fx.instructor),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: course.ErrModuleNotFound.Error()}),
		},
	})
}

func Test_contentApi_destroy(t *testing.T) {
	app := setup(t)
	fx := createContentFixtures(t)
	token := getToken(t, fx.instructor)

	othersText := testutil.CreateText(t, contentRepo, fx.othersMod, fx.other, "Intro", "Hola")
	notFound := marchallObj(t, httpErr{Error: content.ErrNotFound.Error()})

	file := &uploadFile{filename: "gopher.png", contentType: "image/png", content: pngData}
	req, rec := newMultipartRequest(t, http.MethodPost, "/v1/manage/modules/"+fx.mod.ID+"/content/image", token, map[string]string{"title": "Gopher"}, file)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var img content.Content
	unmarshal(t, rec, &img)

	runHTTPTests(t, app, []httpTest{
		{
			name: "Instructor required", method: http.MethodDelete, path: "/v1/manage/contents/" + img.ID, token: getToken(t, fx.student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "someone else's", method: http.MethodDelete, path: "/v1/manage/contents/" + othersText.ID, token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown", method: http.MethodDelete, path: "/v1/manage/contents/lol", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "deleted", method: http.MethodDelete, path: "/v1/manage/contents/" + img.ID, token: token, wantCode: http.StatusNoContent},
		{name: "already deleted", method: http.MethodDelete, path: "/v1/manage/contents/" + img.ID, token: token, wantCode: http.StatusNotFound, wantData: notFound},
	})

	ctx := context.Background()
	_, err := contentRepo.GetItem(ctx, content.TypeImage, img.ItemID)
	assert.Equal(t, content.ErrItemNotFound, err)
	_, err = os.Stat(mediaPath(img.Item.(*content.Image).File))
	assert.True(t, os.IsNotExist(err), "file not deleted")

	_, err = contentRepo.GetContent(ctx, content.Filter{ID: othersText.ID})
	assert.NoError(t, err)
}

func Test_contentApi_orderContents(t *testing.T) {
	app := setup(t)
	fx := createContentFixtures(t)

	text1 := testutil.CreateText(t, contentRepo, fx.mod, fx.instructor, "Intro", "Hello")
	text2 := testutil.CreateText(t, contentRepo, fx.mod, fx.instructor, "Outro", "Bye")
	saved := marchallObj(t, echoapi.SavedResponse{Saved: "OK"})
	orders := marchallObj(t, map[string]int{text1.ID: 1, text2.ID: 0})

	runHTTPTests(t, app, []httpTest{
		{
			name: "Instructor required", method: http.MethodPost, path: "/v1/manage/contents/order", token: getToken(t, fx.student), body: orders,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "not owned: skipped", method: http.MethodPost, path: "/v1/manage/contents/order", token: getToken(t, fx.other), body: orders, wantData: saved},
	})

	contents, err := contentRepo.QueryContents(context.Background(), fx.mod.ID)
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, text1.ID, contents[0].ID)

	runHTTPTests(t, app, []httpTest{
		{name: "reordered", method: http.MethodPost, path: "/v1/manage/contents/order", token: getToken(t, fx.instructor), body: orders, wantData: saved},
	})

	contents, err = contentRepo.QueryContents(context.Background(), fx.mod.ID)
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, text2.ID, contents[0].ID)
	assert.Equal(t, text1.ID, contents[1].ID)
	assert.Equal(t, 1, contents[1].Order)
}
