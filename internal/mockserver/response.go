package mockserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/skillshare/internal/model"
)

// errorResponseBody はエラーレスポンスの統一フォーマット。
type errorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

// writeJSON はvをJSONで書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeError(w http.ResponseWriter, status int, code, category, message string) {
	writeJSON(w, status, errorResponseBody{Code: code, Message: message, Category: category})
}

// writePlainError は実際のバックエンドに合わせ、認証系のエラーをプレーンテキストで書き込む。
func writePlainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "auth", "Authentication required")
}

func writeNotFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "validation", what+" not found")
}

func writeForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "FORBIDDEN", "auth", "You are not allowed to modify this resource")
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "validation", message)
}

// writeInternalServerError は内部エラーの統一レスポンスを書き込む。
func writeInternalServerError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "system", "Internal server error")
}

// writeResult は所有者チェックを伴う操作の失敗を書き込む。成功時はfalseを返す。
func writeResult(w http.ResponseWriter, res result, what string) bool {
	switch res {
	case resultNotFound:
		writeNotFound(w, what)
		return true
	case resultForbidden:
		writeForbidden(w)
		return true
	default:
		return false
	}
}

const (
	defaultPage = 0
	defaultSize = 10
	maxPageSize = 100
)

// paginate はpage, sizeクエリに従ってitemsを切り出し、ページエンベロープを返す。
func paginate[T any](r *http.Request, items []T) model.Page[T] {
	page := queryInt(r, "page", defaultPage)
	if page < 0 {
		page = defaultPage
	}
	size := queryInt(r, "size", defaultSize)
	if size <= 0 {
		size = defaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	total := len(items)
	totalPages := (total + size - 1) / size
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	content := make([]T, end-start)
	copy(content, items[start:end])
	return model.Page[T]{
		Content:       content,
		Number:        page,
		Size:          size,
		TotalElements: int64(total),
		TotalPages:    totalPages,
		Last:          page >= totalPages-1,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
