package model

import (
	"bytes"
	"fmt"
	"time"
)

// LocalDateTimeLayout はバックエンドがタイムゾーンなしで送受信する日時の形式。
const LocalDateTimeLayout = "2006-01-02T15:04:05.999999999"

var localDateTimeLayouts = []string{
	time.RFC3339Nano,
	LocalDateTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02",
}

// LocalDateTime はタイムゾーンを持たないバックエンドの日時を表す。
// オフセットのない値は壁時計の時刻としてUTCで保持し、送信時もオフセットを付けない。
type LocalDateTime struct {
	time.Time
}

// NewLocalDateTime はtの壁時計の時刻を持つLocalDateTimeを返す。
func NewLocalDateTime(t time.Time) LocalDateTime {
	return LocalDateTime{Time: t}
}

// ParseLocalDateTime はRFC3339、オフセットなしの日時、日付のみのいずれかを解釈する。
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	for _, layout := range localDateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalDateTime{Time: t}, nil
		}
	}
	return LocalDateTime{}, fmt.Errorf("invalid date-time %q", s)
}

// MarshalJSON はオフセットなしの形式で出力する。ゼロ値はnull。
func (d LocalDateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(LocalDateTimeLayout) + `"`), nil
}

// UnmarshalJSON はnullと空文字列をゼロ値として扱う。
func (d *LocalDateTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = LocalDateTime{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid date-time %s", data)
	}
	s := string(data[1 : len(data)-1])
	if s == "" {
		*d = LocalDateTime{}
		return nil
	}
	parsed, err := ParseLocalDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
