package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/roster/apps/api/echo"
	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/auth"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/schedule"
	inmemkv "github.com/trezcool/roster/storage/kv/inmem"
	"github.com/trezcool/roster/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*echoapi.Server
	conf   *core.Config
	svc    schedule.Service
	logger *testutil.Logger
	token  string
}

func setup(t *testing.T) *testApp {
	conf := testutil.NewConfig()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)

	authenticator, err := auth.NewAuthenticator(conf.TOTP.Secret)
	if err != nil {
		t.Fatalf("auth.NewAuthenticator(): %v", err)
	}

	kv := inmemkv.Open()
	logger := new(testutil.Logger)
	svc := schedule.NewService(kv, logger, conf)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		KV:          kv,
		ScheduleSvc: svc,
		Auth:        authenticator,
		Importer:    roster.NewImporter(validate, translator),
		Validate:    validate,
		Translator:  translator,
	})
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	return &testApp{
		Server: server,
		conf:   conf,
		svc:    svc,
		logger: logger,
		token:  getToken(t, conf),
	}
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

func getToken(t *testing.T, conf *core.Config, origIat ...int64) string {
	token, err := echoapi.GenerateToken(conf, echoapi.NewClaims(conf, origIat...))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createEntry(t *testing.T, svc schedule.Service, ne schedule.NewEntry) schedule.Entry {
	entry, err := svc.Create(context.Background(), ne)
	if err != nil {
		t.Fatalf("createEntry(): %v", err)
	}
	return entry
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
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
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
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
