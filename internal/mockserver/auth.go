package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/skillshare/internal/model"
)

const mockIssuer = "skillshare-mock"

var errInvalidToken = errors.New("invalid or expired token")

// claims はモックサーバーが発行するJWTのクレーム。
type claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// tokenIssuer はHS256のJWTを発行・検証する。
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (t *tokenIssuer) issue(userID int64) (string, error) {
	return t.issueWithTTL(userID, t.ttl)
}

func (t *tokenIssuer) issueWithTTL(userID int64, ttl time.Duration) (string, error) {
	now := t.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    mockIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

func (t *tokenIssuer) verify(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return t.secret, nil
	}, jwt.WithIssuer(mockIssuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return 0, errInvalidToken
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.UserID == 0 {
		return 0, errInvalidToken
	}
	return c.UserID, nil
}

// userContextKey は認証済みユーザーをコンテキストに格納するキー。
type userContextKey struct{}

// authenticate はBearerトークンを検証し、ユーザーをコンテキストに格納する。
// トークンがない、不正、期限切れ、またはユーザーが存在しない場合は401を返す。
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeUnauthorized(w)
			return
		}
		userID, err := s.tokens.verify(strings.TrimSpace(token))
		if err != nil {
			writeUnauthorized(w)
			return
		}
		u, ok := s.store.user(userID)
		if !ok {
			writeUnauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser はauthenticateが格納したユーザーを返す。
func currentUser(r *http.Request) model.User {
	u, _ := r.Context().Value(userContextKey{}).(model.User)
	return u
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister はユーザー登録を処理する。
// POST /auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePlainError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writePlainError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		writeInternalServerError(w)
		return
	}

	u, ok := s.store.createUser(strings.TrimSpace(req.Name), req.Email, hash)
	if !ok {
		writePlainError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	s.writeAuthResponse(w, u)
}

// handleLogin はログインを処理する。
// POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePlainError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, hash, ok := s.store.credentials(req.Email)
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writePlainError(w, http.StatusBadRequest, "Invalid email or password")
		return
	}
	s.writeAuthResponse(w, u)
}

func (s *Server) writeAuthResponse(w http.ResponseWriter, u model.User) {
	token, err := s.tokens.issue(u.ID)
	if err != nil {
		s.logger.Error("token signing failed", "error", err)
		writeInternalServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{Token: token, User: u})
}
