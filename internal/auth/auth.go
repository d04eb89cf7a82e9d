package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pratik7mo/AI-TaskManagement/internal/db"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

type Handler struct {
	DB     *db.DB
	secret []byte
}

func NewHandler(database *db.DB, secretKey string) *Handler {
	return &Handler{DB: database, secret: []byte(secretKey)}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.RegisterUser)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.Handle("GET /auth/me", h.RequireAuth(http.HandlerFunc(h.Me)))
}

// RegisterUser: POST /auth/register
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	var exists int
	err := h.DB.QueryRowContext(r.Context(),
		h.rebind("SELECT COUNT(*) FROM users WHERE email=$1"), req.Email).Scan(&exists)
	if err == nil && exists > 0 {
		http.Error(w, "email already exists", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var id int64
	if h.DB.Driver == db.DriverPostgres {
		err = h.DB.QueryRowContext(r.Context(),
			"INSERT INTO users (email, password, created_at) VALUES ($1, $2, $3) RETURNING id",
			req.Email, string(hash), time.Now().UTC()).Scan(&id)
	} else {
		res, execErr := h.DB.ExecContext(r.Context(),
			"INSERT INTO users (email, password, created_at) VALUES (?1, ?2, ?3)",
			req.Email, string(hash), time.Now().UTC())
		err = execErr
		if err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	token, err := h.generateToken(id)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, tokenResponse{Token: token})
}

// Login: POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var id int64
	var hash string
	err := h.DB.QueryRowContext(r.Context(),
		h.rebind("SELECT id, password FROM users WHERE email=$1"), req.Email).Scan(&id, &hash)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}

	token, err := h.generateToken(id)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, tokenResponse{Token: token})
}

// Me: GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var email string
	err := h.DB.QueryRowContext(r.Context(),
		h.rebind("SELECT email FROM users WHERE id=$1"), id).Scan(&email)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"id": id, "email": email})
}

// RequireAuth validates the bearer token and puts the user id on the context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer := r.Header.Get("Authorization")
		if !strings.HasPrefix(bearer, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		tokenStr := strings.TrimPrefix(bearer, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return h.secret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		idClaim, ok := claims["id"].(float64)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, int64(idClaim))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func (h *Handler) generateToken(id int64) (string, error) {
	claims := jwt.MapClaims{
		"id":  id,
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

func (h *Handler) rebind(query string) string {
	if h.DB.Driver == db.DriverSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
