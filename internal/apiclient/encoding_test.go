package apiclient

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/hitoshi/skillshare/internal/model"
)

// readMultipart はマルチパートのボディをフィールドとファイルパートに分解する。
func readMultipart(t *testing.T, body *encodedBody) (map[string][]string, map[string][]string) {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(body.contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q, want multipart/form-data", body.contentType)
	}
	fields := map[string][]string{}
	files := map[string][]string{}
	mr := multipart.NewReader(bytes.NewReader(body.data), params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			files[part.FormName()] = append(files[part.FormName()], part.FileName()+":"+string(data))
			continue
		}
		fields[part.FormName()] = append(fields[part.FormName()], string(data))
	}
	return fields, files
}

func TestEncodePayload_JSONWithoutAttachments(t *testing.T) {
	in := model.PostInput{Content: "hello", Type: model.PostTypeSkillSharing, MediaURLs: []string{"https://cdn.example.com/1.png"}}
	body, err := encodePayload(in, mediaPartName, nil)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	if body.contentType != "application/json" {
		t.Fatalf("content type = %q, want application/json", body.contentType)
	}
	var got map[string]any
	if err := json.Unmarshal(body.data, &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	for _, key := range []string{"content", "type", "mediaUrls"} {
		if _, ok := got[key]; !ok {
			t.Errorf("JSON body has no %q key: %s", key, body.data)
		}
	}
}

// TestEncodePayload_FieldNamesMatchAcrossEncodings はメディアURLの有無にかかわらず
// JSONのキーとマルチパートのフィールド名が一致することを検証する。
func TestEncodePayload_FieldNamesMatchAcrossEncodings(t *testing.T) {
	tests := []struct {
		name      string
		mediaURLs []string
	}{
		{"メディアURLなし(nil)", nil},
		{"メディアURLなし(空)", []string{}},
		{"メディアURLあり", []string{"https://cdn.example.com/1.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := model.PostInput{Content: "c", Type: model.PostTypeSkillSharing, MediaURLs: tt.mediaURLs}

			jsonBody, err := encodePayload(in, mediaPartName, nil)
			if err != nil {
				t.Fatalf("encodePayload (JSON): %v", err)
			}
			var obj map[string]any
			if err := json.Unmarshal(jsonBody.data, &obj); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			jsonKeys := make([]string, 0, len(obj))
			for k := range obj {
				jsonKeys = append(jsonKeys, k)
			}
			sort.Strings(jsonKeys)

			mpBody, err := encodePayload(in, mediaPartName, []*Attachment{{FileName: "a.png", Reader: strings.NewReader("A")}})
			if err != nil {
				t.Fatalf("encodePayload (multipart): %v", err)
			}
			fields, _ := readMultipart(t, mpBody)
			mpKeys := make([]string, 0, len(fields))
			for k := range fields {
				mpKeys = append(mpKeys, k)
			}
			sort.Strings(mpKeys)

			if !reflect.DeepEqual(jsonKeys, mpKeys) {
				t.Errorf("field names differ: JSON %v, multipart %v", jsonKeys, mpKeys)
			}
			if len(tt.mediaURLs) == 0 {
				if _, ok := obj["mediaUrls"]; ok {
					t.Errorf("empty mediaUrls should be omitted: %s", jsonBody.data)
				}
			}
		})
	}
}

func TestEncodePayload_NilPayloadHasNoBody(t *testing.T) {
	body, err := encodePayload(nil, "", nil)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	if body != nil {
		t.Errorf("body = %+v, want nil", body)
	}
}

// TestEncodePayload_MultipartUsesJSONFieldNames はマルチパートのフィールド名がJSONのキーと一致することを検証する。
func TestEncodePayload_MultipartUsesJSONFieldNames(t *testing.T) {
	in := model.PostInput{
		Content:   "hello",
		Type:      model.PostTypeLearningProgress,
		MediaURLs: []string{"https://cdn.example.com/1.png", "https://cdn.example.com/2.png"},
	}
	files := []*Attachment{
		{FileName: "a.png", ContentType: "image/png", Reader: strings.NewReader("A")},
		{FileName: "b.jpg", Reader: strings.NewReader("B")},
	}

	body, err := encodePayload(in, mediaPartName, files)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	fields, parts := readMultipart(t, body)

	wantFields := map[string][]string{
		"content":   {"hello"},
		"type":      {"LEARNING_PROGRESS"},
		"mediaUrls": {"https://cdn.example.com/1.png", "https://cdn.example.com/2.png"},
	}
	if !reflect.DeepEqual(fields, wantFields) {
		t.Errorf("fields = %v, want %v", fields, wantFields)
	}
	if want := []string{"a.png:A", "b.jpg:B"}; !reflect.DeepEqual(parts["media"], want) {
		t.Errorf("media parts = %v, want %v", parts["media"], want)
	}
}

func TestEncodePayload_FilePartHeaders(t *testing.T) {
	files := []*Attachment{{FileName: `we"ird.png`, Reader: strings.NewReader("x")}}
	body, err := encodePayload(nil, "file", files)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}

	_, params, _ := mime.ParseMediaType(body.contentType)
	mr := multipart.NewReader(bytes.NewReader(body.data), params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("NextPart: %v", err)
	}
	if part.FormName() != "file" {
		t.Errorf("form name = %q, want file", part.FormName())
	}
	if part.FileName() != `we"ird.png` {
		t.Errorf("file name = %q", part.FileName())
	}
	if ct := part.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("content type = %q, want application/octet-stream", ct)
	}
}

func TestEncodePayload_NilAttachmentFails(t *testing.T) {
	if _, err := encodePayload(nil, "file", []*Attachment{{FileName: "x"}}); err == nil {
		t.Fatal("expected error for attachment without reader")
	}
}

func TestFlattenFields(t *testing.T) {
	payload := struct {
		Name   string         `json:"name"`
		Count  int            `json:"count"`
		Active bool           `json:"active"`
		Tags   []string       `json:"tags"`
		Empty  *string        `json:"empty"`
		Meta   map[string]int `json:"meta"`
	}{
		Name:   "x",
		Count:  3,
		Active: true,
		Tags:   []string{"a", "b"},
		Meta:   map[string]int{"k": 1},
	}

	got, err := flattenFields(payload)
	if err != nil {
		t.Fatalf("flattenFields: %v", err)
	}
	want := []formField{
		{"active", "true"},
		{"count", "3"},
		{"meta", `{"k":1}`},
		{"name", "x"},
		{"tags", "a"},
		{"tags", "b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("flattenFields = %v, want %v", got, want)
	}
}

func TestOpenAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.PNG")
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}

	a, err := OpenAttachment(path)
	if err != nil {
		t.Fatalf("OpenAttachment: %v", err)
	}
	defer a.Close()

	if a.FileName != "photo.PNG" {
		t.Errorf("FileName = %q", a.FileName)
	}
	if a.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", a.ContentType)
	}

	if _, err := OpenAttachment(dir); err == nil {
		t.Error("expected error for directory")
	}
	if _, err := OpenAttachment(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
