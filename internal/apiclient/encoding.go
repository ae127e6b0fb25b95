package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Attachment はマルチパートで送信するファイル。
type Attachment struct {
	FileName    string
	ContentType string // 空の場合はapplication/octet-stream
	Reader      io.Reader

	closer io.Closer
}

// Close はOpenAttachmentで開いたファイルを閉じる。
func (a *Attachment) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// OpenAttachment はローカルファイルを開いてAttachmentを生成する。
// Content-Typeは拡張子から推定する。呼び出し元はCloseを呼ぶこと。
func OpenAttachment(path string) (*Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat attachment: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("attachment %s is a directory", path)
	}

	name := filepath.Base(path)
	return &Attachment{
		FileName:    name,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(name))),
		Reader:      f,
		closer:      f,
	}, nil
}

// encodedBody はエンコード済みのリクエストボディ。
type encodedBody struct {
	data        []byte
	contentType string
}

// encodePayload はペイロードをリクエストボディにエンコードする。
// 添付ファイルがない場合はJSON、1つ以上ある場合はマルチパートを選ぶ。
// マルチパートのフィールド名はpayloadのJSONキーと同じになるため、
// バックエンドから見たフィールド名はどちらの経路でも一致する。
// 添付ファイルはすべてpartNameのパートとして送信される。
func encodePayload(payload any, partName string, files []*Attachment) (*encodedBody, error) {
	if len(files) == 0 {
		if payload == nil {
			return nil, nil
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON body: %w", err)
		}
		return &encodedBody{data: data, contentType: "application/json"}, nil
	}

	fields, err := flattenFields(payload)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to write multipart field %s: %w", f.name, err)
		}
	}
	for _, file := range files {
		if file == nil || file.Reader == nil {
			return nil, fmt.Errorf("attachment for part %s has no content", partName)
		}
		part, err := mw.CreatePart(filePartHeader(partName, file))
		if err != nil {
			return nil, fmt.Errorf("failed to create multipart part %s: %w", partName, err)
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", file.FileName, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return &encodedBody{data: buf.Bytes(), contentType: mw.FormDataContentType()}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(partName string, file *Attachment) textproto.MIMEHeader {
	fileName := file.FileName
	if fileName == "" {
		fileName = "file"
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(partName), quoteEscaper.Replace(fileName)))
	h.Set("Content-Type", contentType)
	return h
}

type formField struct {
	name  string
	value string
}

// flattenFields はpayloadをJSONとして解釈し、マルチパートのフィールド列に変換する。
// 配列は同名フィールドの繰り返し、オブジェクトはJSON文字列、nullは省略とする。
// フィールドはキー名の昇順に並べる。
func flattenFields(payload any) ([]formField, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode multipart fields: %w", err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("multipart payload must be a JSON object: %w", err)
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []formField
	for _, k := range keys {
		raw := bytes.TrimSpace(obj[k])
		if len(raw) > 0 && raw[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("failed to decode field %s: %w", k, err)
			}
			for _, item := range items {
				v, ok, err := scalarValue(item)
				if err != nil {
					return nil, fmt.Errorf("failed to decode field %s: %w", k, err)
				}
				if ok {
					fields = append(fields, formField{name: k, value: v})
				}
			}
			continue
		}
		v, ok, err := scalarValue(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode field %s: %w", k, err)
		}
		if ok {
			fields = append(fields, formField{name: k, value: v})
		}
	}
	return fields, nil
}

// scalarValue はJSON値をフォームの文字列値に変換する。nullの場合はokがfalse。
func scalarValue(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case 't', 'f':
		b, err := strconv.ParseBool(string(raw))
		if err != nil {
			return "", false, err
		}
		return strconv.FormatBool(b), true, nil
	default:
		return string(raw), true, nil
	}
}
