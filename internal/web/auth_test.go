package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testAuth() *Auth {
	return NewAuth(nil, bytes.Repeat([]byte{0x01}, 32), bytes.Repeat([]byte{0x02}, 32))
}

func sessionRequest(t *testing.T, a *Auth, userID int64) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, a.SetSession(rec, httptest.NewRequest(http.MethodPost, "/api/login", nil), userID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
	req.AddCookie(cookies[0])
	return req
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")))
}

func TestSessionRoundTrip(t *testing.T) {
	a := testAuth()
	req := sessionRequest(t, a, 42)

	uid, ok := a.UserID(req)
	assert.True(t, ok)
	assert.Equal(t, int64(42), uid)
}

func TestSessionRejectedWithoutCookie(t *testing.T) {
	_, ok := testAuth().UserID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestSessionRejectedWithForeignKeys(t *testing.T) {
	a := testAuth()
	req := sessionRequest(t, a, 42)

	other := NewAuth(nil, bytes.Repeat([]byte{0x03}, 32), bytes.Repeat([]byte{0x04}, 32))
	_, ok := other.UserID(req)
	assert.False(t, ok)
}

func TestSessionRejectedWhenTampered(t *testing.T) {
	a := testAuth()
	req := sessionRequest(t, a, 42)
	c, err := req.Cookie(cookieName)
	require.NoError(t, err)

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: cookieName, Value: c.Value + "x"})
	_, ok := a.UserID(bad)
	assert.False(t, ok)
}

func TestClearSession(t *testing.T) {
	rec := httptest.NewRecorder()
	testAuth().ClearSession(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRequire(t *testing.T) {
	a := testAuth()
	called := false
	h := a.Require(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/reservations", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Body.String(), "not authenticated")

	rec = httptest.NewRecorder()
	h(rec, sessionRequest(t, a, 7))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:54321"))
	assert.True(t, isLoopback("[::1]:80"))
	assert.False(t, isLoopback("10.0.0.5:1234"))
	assert.False(t, isLoopback("example.com:80"))
	assert.False(t, isLoopback("garbage"))
}
