package store

import (
	"context"

	"github.com/example/parking-sniper/internal/crypto"
	"github.com/example/parking-sniper/internal/db"
)

// CredRepo stores the single set of portal credentials the worker logs in
// with. The password is AES-GCM encrypted at rest.
type CredRepo struct {
	db   *db.DB
	aead *crypto.AEAD
}

func NewCredRepo(d *db.DB, aead *crypto.AEAD) *CredRepo {
	return &CredRepo{db: d, aead: aead}
}

func (r *CredRepo) Set(ctx context.Context, email, password string) error {
	enc, err := r.aead.EncryptToString(password)
	if err != nil {
		return err
	}
	return r.db.Exec(ctx, `
INSERT INTO portal_credentials(id, email, password_enc, updated_at)
VALUES (1, $1, $2, now())
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, password_enc = EXCLUDED.password_enc, updated_at = now()`,
		email, enc)
}

func (r *CredRepo) Get(ctx context.Context) (email, password string, err error) {
	var enc string
	err = r.db.QueryRow(ctx, `SELECT email, password_enc FROM portal_credentials WHERE id=1`).
		Scan(&email, &enc)
	if err != nil {
		return "", "", db.WrapNotFound(err)
	}
	password, err = r.aead.DecryptString(enc)
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}
