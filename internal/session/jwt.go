package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry はJWT形式のトークンからexpクレームを読み取る。
// 署名の検証は行わない（鍵はバックエンドのみが持つ）。
// JWTでない、またはexpを含まない場合はfalseを返す。
func TokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpired はトークンのexpがnow以前であればtrueを返す。
// 有効期限を判定できないトークンは期限切れとみなさない。
func IsExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !now.Before(exp)
}
