// Package jwt реализует проверку JWT токенов, выпущенных пулом пользователей Cognito.
//
// Verifier проверяет подпись RS256 по снимку публичных ключей провайдера,
// а также издателя, аудиторию и срок действия, и возвращает subject токена.
// Снимок ключей загружается при старте и обновляется периодически либо при
// встрече неизвестного kid.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/expense-report/internal/lib/sl"
	"github.com/magabrotheeeer/expense-report/internal/models"
)

// ErrUnknownKey в снимке нет ключа с kid из заголовка токена.
var ErrUnknownKey = errors.New("public key not found for kid")

// Options параметры проверки токенов.
type Options struct {
	Issuer         string        // Ожидаемое значение iss
	Audience       string        // Ожидаемое значение aud (client id)
	MinRefreshWait time.Duration // Минимальный интервал между обновлениями по промаху
}

// Verifier проверяет токены по снимку ключей, который можно атомарно заменить.
type Verifier struct {
	opts    Options
	fetcher Fetcher
	log     *slog.Logger
	keys    atomic.Pointer[KeySet]
	parser  *jwt.Parser

	refreshMu   sync.Mutex
	lastRefresh time.Time
	now         func() time.Time
}

// NewVerifier создает Verifier с уже загруженным снимком ключей.
func NewVerifier(keys *KeySet, fetcher Fetcher, opts Options, log *slog.Logger) *Verifier {
	v := &Verifier{
		opts:    opts,
		fetcher: fetcher,
		log:     log,
		now:     time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(opts.Issuer),
			jwt.WithAudience(opts.Audience),
			jwt.WithExpirationRequired(),
		),
	}
	v.keys.Store(keys)
	v.lastRefresh = keys.FetchedAt()
	return v
}

// Load загружает ключи один раз и создает Verifier. Ошибка загрузки фатальна для старта.
func Load(ctx context.Context, fetcher Fetcher, opts Options, log *slog.Logger) (*Verifier, error) {
	const op = "jwt.Load"
	keys, err := fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("signing keys loaded", slog.Int("count", keys.Len()))
	return NewVerifier(keys, fetcher, opts, log), nil
}

// Keys возвращает текущий снимок ключей.
func (v *Verifier) Keys() *KeySet {
	return v.keys.Load()
}

// Refresh загружает свежий снимок ключей и атомарно заменяет текущий.
// При ошибке остается прежний снимок.
func (v *Verifier) Refresh(ctx context.Context) error {
	const op = "jwt.Verifier.Refresh"
	v.refreshMu.Lock()
	defer v.refreshMu.Unlock()
	return v.refreshLocked(ctx, op)
}

func (v *Verifier) refreshLocked(ctx context.Context, op string) error {
	v.lastRefresh = v.now()
	keys, err := v.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	v.keys.Store(keys)
	v.log.Info("signing keys refreshed", slog.Int("count", keys.Len()))
	return nil
}

// refreshOnMiss обновляет ключи, если с прошлого обновления прошло не меньше MinRefreshWait.
func (v *Verifier) refreshOnMiss(ctx context.Context, kid string) {
	const op = "jwt.Verifier.refreshOnMiss"
	v.refreshMu.Lock()
	defer v.refreshMu.Unlock()

	if _, ok := v.keys.Load().Lookup(kid); ok {
		return
	}
	if v.now().Sub(v.lastRefresh) < v.opts.MinRefreshWait {
		return
	}
	if err := v.refreshLocked(ctx, op); err != nil {
		v.log.Error("failed to refresh signing keys", sl.Err(err))
	}
}

// Run периодически обновляет ключи, пока не отменен ctx.
func (v *Verifier) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.Refresh(ctx); err != nil {
				v.log.Error("periodic key refresh failed", sl.Err(err))
			}
		}
	}
}

// Verify проверяет токен и возвращает его subject.
// Все ошибки оборачивают models.ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (string, error) {
	const op = "jwt.Verifier.Verify"
	if tokenStr == "" {
		return "", fmt.Errorf("%s: %w: empty token", op, models.ErrUnauthorized)
	}

	var claims jwt.RegisteredClaims
	token, err := v.parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKey
		}
		if key, ok := v.keys.Load().Lookup(kid); ok {
			return key, nil
		}
		v.refreshOnMiss(ctx, kid)
		if key, ok := v.keys.Load().Lookup(kid); ok {
			return key, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, models.ErrUnauthorized, err)
	}
	if !token.Valid {
		return "", fmt.Errorf("%s: %w: invalid token", op, models.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%s: %w: missing subject", op, models.ErrUnauthorized)
	}
	return claims.Subject, nil
}
