package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/educa/apps/api/echo"
	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
	cachesvc "github.com/trezcool/educa/services/cache"
	emailsvc "github.com/trezcool/educa/services/email"
	logsvc "github.com/trezcool/educa/services/logger"
	storagesvc "github.com/trezcool/educa/services/storage"
	inmemdb "github.com/trezcool/educa/storage/database/inmem"
)

var (
	usrRepo     user.Repository
	courseRepo  course.Repository
	contentRepo content.Repository
	mediaDir    string

	validate   = validator.New()
	translator = core.NewTranslator()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

// setup returns a Server backed by a fresh in-memory database.
func setup(t *testing.T) *echoapi.Server {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	usrRepo = inmemdb.NewUserRepository(db)
	courseRepo = inmemdb.NewCourseRepository(db)
	contentRepo = inmemdb.NewContentRepository(db)
	tx := inmemdb.NewTransactor()

	conf := *core.Conf
	conf.Storage.Backend = "local"
	conf.Storage.Dir = t.TempDir()
	conf.Storage.BaseURL = "/media"
	mediaDir = conf.Storage.Dir

	logger := logsvc.NewRollbarLogger(zap.NewNop(), &conf)
	mailSvc := emailsvc.NewConsoleServiceMock()
	emailsvc.ResetSentMessages()
	storage := storagesvc.NewLocalStorage(&conf)

	usrSvc := user.NewServiceMock(usrRepo, mailSvc)
	courseSvc := course.NewService(courseRepo, tx, cachesvc.NewMemoryCache(), mailSvc, logger, &conf)
	contentSvc := content.NewService(contentRepo, courseSvc, tx, storage, logger)

	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           &conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		ContentSvc:     contentSvc,
		Storage:        storage,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

type uploadFile struct {
	filename    string
	contentType string
	content     []byte
}

// newMultipartRequest builds a multipart/form-data request holding fields, and file under `file` when set.
func newMultipartRequest(
	t *testing.T,
	method, path, token string,
	fields map[string]string,
	file *uploadFile,
) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+file.filename+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(file.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, usr user.User) string {
	claims := echoapi.GetUserClaims(usr)
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v; body %s", err, rec.Body.String())
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
