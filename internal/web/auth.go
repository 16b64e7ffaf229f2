package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/example/parking-sniper/internal/db"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

const cookieName = "parksniper_session"

// Auth handles dashboard users: bcrypt passwords in the store, signed
// session cookies on the wire. These are the UI's users, not the portal
// credentials the worker logs in with.
type Auth struct {
	sc *securecookie.SecureCookie
	db *db.DB
}

func NewAuth(d *db.DB, hashKey, blockKey []byte) *Auth {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int((14 * 24 * time.Hour).Seconds()))
	return &Auth{sc: sc, db: d}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func (a *Auth) CreateUser(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return a.db.Exec(ctx, `INSERT INTO users(username, password_bcrypt) VALUES ($1,$2)`, username, hash)
}

func (a *Auth) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var id int64
	var hash string
	err := a.db.QueryRow(ctx, `SELECT id, password_bcrypt FROM users WHERE username=$1`, username).Scan(&id, &hash)
	if err != nil {
		return 0, db.WrapNotFound(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return 0, errors.New("invalid credentials")
	}
	return id, nil
}

func (a *Auth) SetSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	encoded, err := a.sc.Encode(cookieName, map[string]int64{"uid": userID})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int((14 * 24 * time.Hour).Seconds()),
	})
	return nil
}

func (a *Auth) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (a *Auth) UserID(r *http.Request) (int64, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return 0, false
	}
	val := map[string]int64{}
	if err := a.sc.Decode(cookieName, c.Value, &val); err != nil {
		return 0, false
	}
	uid := val["uid"]
	if uid <= 0 {
		return 0, false
	}
	return uid, true
}

// Require wraps an API handler with session auth. This surface is JSON, so
// rejection is a 401 body rather than a redirect.
func (a *Auth) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.UserID(r); !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next(w, r)
	}
}
