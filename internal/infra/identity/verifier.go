package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v4"
)

var (
	//トークン不正（期限切れ・署名不一致・issuer不一致など）=> 401
	ErrInvalidToken = errors.New("identity: invalid token")
	//鍵セットが取得できない => 503
	ErrUnavailable = errors.New("identity: provider unavailable")
)

// 検証済みトークンから取り出すクレーム。
// 生トークンは保存しない。以後はローカルのuser idだけを使う。
type Claims struct {
	Subject string
	Email   string
	Name    string
}

// 外部IDプロバイダのbearerトークンを検証する約束。
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Claims, error)
}

const jwksCacheTTL = 15 * time.Minute

// JWKSVerifier は外部IDプロバイダのJWKSを取得・キャッシュし、
// RS256署名のIDトークンを検証する。
type JWKSVerifier struct {
	jwksURL string
	issuer  string
	client  *http.Client

	mu     sync.RWMutex
	keys   map[string]jose.JSONWebKey
	expiry time.Time
}

func NewJWKSVerifier(jwksURL string, issuer string) *JWKSVerifier {
	return &JWKSVerifier{
		jwksURL: jwksURL,
		issuer:  issuer,
		client:  &http.Client{Timeout: 10 * time.Second},
		keys:    map[string]jose.JSONWebKey{},
	}
}

func (v *JWKSVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	if rawToken == "" {
		return Claims{}, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodRS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrInvalidToken
		}

		key, err := v.keyFor(ctx, kid)
		if err != nil {
			return nil, err
		}
		return key.Key, nil
	})

	if err != nil {
		//鍵取得の失敗は「トークン不正」とは区別する
		if errors.Is(err, ErrUnavailable) {
			return Claims{}, ErrUnavailable
		}
		return Claims{}, ErrInvalidToken
	}
	if token == nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	if v.issuer != "" {
		if !claims.VerifyIssuer(v.issuer, true) {
			return Claims{}, ErrInvalidToken
		}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Claims{}, ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return Claims{Subject: sub, Email: email, Name: name}, nil
}

// keyFor はkidに対応する鍵をキャッシュから返す。
// 無い/期限切れならJWKSを取り直す。
func (v *JWKSVerifier) keyFor(ctx context.Context, kid string) (jose.JSONWebKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Now().Before(v.expiry)
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		//取得失敗でも手元の鍵が使えるなら使う
		if ok {
			return key, nil
		}
		return jose.JSONWebKey{}, err
	}

	v.mu.RLock()
	key, ok = v.keys[kid]
	v.mu.RUnlock()

	if !ok {
		return jose.JSONWebKey{}, ErrInvalidToken
	}
	return key, nil
}

func (v *JWKSVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return ErrUnavailable
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrUnavailable
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return ErrUnavailable
	}

	keys := make(map[string]jose.JSONWebKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.KeyID != "" {
			keys[k.KeyID] = k
		}
	}

	v.mu.Lock()
	v.keys = keys
	v.expiry = time.Now().Add(jwksCacheTTL)
	v.mu.Unlock()

	return nil
}
