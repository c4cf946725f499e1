package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/magabrotheeeer/expense-report/internal/lib/sl"
)

// JwkRSA публичный ключ провайдера в формате JWK.
type JwkRSA struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS документ {issuer}/.well-known/jwks.json.
type JWKS struct {
	Keys []JwkRSA `json:"keys"`
}

// KeySet неизменяемый снимок ключей подписи, индексированный по kid.
type KeySet struct {
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet строит снимок из JWK. Ключи не RSA, без kid и поврежденные
// пропускаются; ошибки по пропущенным поврежденным ключам возвращаются вместе
// со снимком. Снимок без единого ключа считается ошибкой.
func NewKeySet(jwks JWKS, fetchedAt time.Time) (*KeySet, []error, error) {
	const op = "jwt.NewKeySet"
	ks := &KeySet{keys: make(map[string]*rsa.PublicKey, len(jwks.Keys)), fetchedAt: fetchedAt}
	var skipped []error
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := k.PublicKey()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("kid %s: %w", k.Kid, err))
			continue
		}
		ks.keys[k.Kid] = pub
	}
	if len(ks.keys) == 0 && len(skipped) > 0 {
		return nil, skipped, fmt.Errorf("%s: %w", op, errors.Join(skipped...))
	}
	return ks, skipped, nil
}

// Lookup возвращает ключ по kid.
func (ks *KeySet) Lookup(kid string) (*rsa.PublicKey, bool) {
	if ks == nil {
		return nil, false
	}
	k, ok := ks.keys[kid]
	return k, ok
}

// Len количество ключей в снимке.
func (ks *KeySet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.keys)
}

// FetchedAt время получения снимка.
func (ks *KeySet) FetchedAt() time.Time {
	if ks == nil {
		return time.Time{}
	}
	return ks.fetchedAt
}

// PublicKey собирает *rsa.PublicKey из модуля и экспоненты в base64url.
func (k JwkRSA) PublicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}
	if len(nb) == 0 || len(eb) == 0 {
		return nil, errors.New("empty modulus or exponent")
	}
	e := new(big.Int).SetBytes(eb)
	if !e.IsInt64() || e.Int64() > 1<<31-1 {
		return nil, errors.New("exponent too large")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(e.Int64())}, nil
}

// NewJwkRSA кодирует публичный ключ в JWK с заданным kid.
func NewJwkRSA(kid string, pub *rsa.PublicKey) JwkRSA {
	return JwkRSA{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// Fetcher загружает набор ключей провайдера.
type Fetcher interface {
	Fetch(ctx context.Context) (*KeySet, error)
}

// HTTPFetcher загружает JWKS по HTTP.
type HTTPFetcher struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
	Log     *slog.Logger
}

// NewHTTPFetcher создает HTTPFetcher с таймаутом на каждый запрос.
func NewHTTPFetcher(url string, timeout time.Duration, log *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{URL: url, Client: &http.Client{}, Timeout: timeout, Log: log}
}

// Fetch выполняет GET {issuer}/.well-known/jwks.json и разбирает ответ.
func (f *HTTPFetcher) Fetch(ctx context.Context) (*KeySet, error) {
	const op = "jwt.HTTPFetcher.Fetch"
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var doc JWKS
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	ks, skipped, err := NewKeySet(doc, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if f.Log != nil {
		for _, e := range skipped {
			f.Log.Warn("malformed signing key skipped", slog.String("op", op), sl.Err(e))
		}
	}
	return ks, nil
}
