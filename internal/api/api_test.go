package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/auth"
	"github.com/erazemk/findme/internal/db"
	"github.com/erazemk/findme/internal/model"
	"github.com/erazemk/findme/internal/store"
	"github.com/erazemk/findme/internal/upload"
)

const (
	testJWTSecret = "test-secret"
	testPassword  = "password123"
)

type testEnv struct {
	server  *httptest.Server
	db      *sql.DB
	issuer  *auth.Issuer
	uploads *upload.Store
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	uploads, err := upload.New(filepath.Join(t.TempDir(), "uploads"), 1<<20)
	require.NoError(t, err)

	env := &testEnv{
		db:      database,
		issuer:  auth.NewIssuer(testJWTSecret, 0),
		uploads: uploads,
	}
	env.server = httptest.NewServer(NewRouter(Deps{
		DB:      database,
		Issuer:  env.issuer,
		Uploads: uploads,
		Log:     zap.NewNop(),
	}))
	t.Cleanup(env.server.Close)
	return env
}

var testHash string

func passwordHash(t *testing.T) string {
	t.Helper()
	if testHash == "" {
		h, err := auth.HashPassword(testPassword)
		require.NoError(t, err)
		testHash = h
	}
	return testHash
}

// createUser inserts a user directly and returns it with a valid token.
func (e *testEnv) createUser(t *testing.T, name, role string) (*model.User, string) {
	t.Helper()
	u, err := store.CreateUser(context.Background(), e.db, store.NewUser{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: passwordHash(t),
		Role:         role,
	})
	require.NoError(t, err)

	token, err := e.issuer.Generate(u.ID, u.Role)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) createItem(t *testing.T, token, name string) model.Item {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/items", token, map[string]string{
		"name":        name,
		"description": "Brown leather",
		"category":    "accessories",
		"location":    "Library",
		"dateLost":    "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.Item](t, resp)
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	return e.send(t, method, path, token, "application/json", r)
}

func (e *testEnv) send(t *testing.T, method, path, token, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decode[map[string]string](t, resp)["message"]
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hugePNG is a few hundred bytes on the wire but declares w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

// multipartBody builds a multipart form with fields and an optional file.
func multipartBody(t *testing.T, fields map[string]string, fileField string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func activityActions(t *testing.T, database *sql.DB) []string {
	t.Helper()
	entries, err := store.ListActivity(context.Background(), database, 0)
	require.NoError(t, err)
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}
