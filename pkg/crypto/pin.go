// Package crypto provides the one-way PIN hashing primitive used by
// the Authentication module. The bot's own pkg/crypto is AES-GCM
// symmetric encryption meant for secrets-at-rest (API keys, tokens);
// a login PIN needs a one-way, salted hash instead, so this package
// reaches for bcrypt from the same x/crypto family the bot already
// imports indirectly.
package crypto

import "golang.org/x/crypto/bcrypt"

const pinHashCost = bcrypt.DefaultCost

// HashPIN returns a bcrypt hash of a 4-8 digit PIN. bcrypt generates
// and embeds its own salt, so callers never manage one separately.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), pinHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPIN reports whether pin matches the stored bcrypt hash.
func VerifyPIN(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
