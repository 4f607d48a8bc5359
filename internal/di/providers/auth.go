package providers

import (
	"github.com/samber/do/v2"

	"github.com/chapterlyapp/chapterly-server/internal/auth"
	"github.com/chapterlyapp/chapterly-server/internal/config"
	"github.com/chapterlyapp/chapterly-server/internal/logger"
)

// AuthKey is the hex-encoded PASETO symmetric key.
type AuthKey string

// ProvideAuthKey returns the configured token key, or loads/generates a
// local one under the data path when none is configured.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.AccessTokenKey != "" {
		log.Info("Using configured access token key")
		return AuthKey(cfg.Auth.AccessTokenKey), nil
	}

	keyHex, err := auth.LoadOrGenerateKey(cfg.App.DataPath)
	if err != nil {
		return "", err
	}
	cfg.Auth.AccessTokenKey = keyHex

	log.Info("Authentication key loaded", "path", cfg.App.DataPath)

	return AuthKey(keyHex), nil
}

// ProvideTokenService provides the PASETO token verifier.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	authKey := do.MustInvoke[AuthKey](i)
	return auth.NewTokenService(string(authKey))
}
