package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/skillshare/internal/model"
	"github.com/hitoshi/skillshare/internal/security"
)

const (
	// maxErrorBodySize はエラーレスポンスから読み取る最大バイト数。
	maxErrorBodySize = 4 * 1024
	// maxErrorMessageLen はプレーンテキストのエラーメッセージの最大文字数。
	maxErrorMessageLen = 200
)

// ErrDownloadTooLarge はダウンロード対象が上限サイズを超えた場合のエラー。
var ErrDownloadTooLarge = errors.New("download exceeds max size")

// blockedURLError はURLGuardの拒否をClientValidationFailureに変換する。
// 元のエラーはErrとして保持するため、security.ErrBlockedURLでも判定できる。
func blockedURLError(prefix string, err error) *model.APIError {
	reason := "URLの形式が不正です"
	var blocked *security.BlockedURLError
	if errors.As(err, &blocked) {
		switch blocked.Reason {
		case security.ReasonScheme:
			reason = "http/https以外のスキームは使用できません"
		case security.ReasonPrivateAddress, security.ReasonLocalHost:
			reason = "内部ネットワーク宛てのURLは使用できません"
		}
	}
	apiErr := model.NewClientValidationError(fmt.Sprintf("%s: %s", prefix, reason))
	apiErr.Err = err
	return apiErr
}

// errorFromResponse は非2xxのレスポンスをAPIErrorに変換する。
// 5xxはServerFailure、それ以外はValidationFailureとして扱う。
func errorFromResponse(resp *http.Response) *model.APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	_, _ = io.Copy(io.Discard, resp.Body)

	msg := extractMessage(body)
	if resp.StatusCode >= 500 {
		return model.NewServerFailureError(resp.StatusCode, msg)
	}
	return model.NewValidationFailureError(resp.StatusCode, msg)
}

// extractMessage はJSONの{message}または{error}、もしくはプレーンテキストからメッセージを取り出す。
func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		}
	}

	// HTMLのエラーページはメッセージとして扱わない
	if strings.HasPrefix(trimmed, "<") {
		return ""
	}

	if utf8.RuneCountInString(trimmed) > maxErrorMessageLen {
		runes := []rune(trimmed)
		trimmed = string(runes[:maxErrorMessageLen]) + "..."
	}
	return trimmed
}
