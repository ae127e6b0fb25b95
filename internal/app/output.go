package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hitoshi/skillshare/internal/model"
)

const timeLayout = "2006-01-02 15:04"

// clean はユーザー投稿由来の文字列を表示用の平文に変換する。
func (a *App) clean(s string) string {
	return a.sanitizer.Sanitize(s)
}

// printJSON は--json指定時の出力。
func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit はJSON出力が指定されていればvを、そうでなければtextの結果を出力する。
func (a *App) emit(v any, text func() error) error {
	if a.jsonOut {
		return a.printJSON(v)
	}
	return text()
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) printPosts(posts []model.Post) error {
	if len(posts) == 0 {
		a.printf("no posts\n")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tTYPE\tLIKES\tCREATED\tCONTENT")
	for _, p := range posts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, a.authorName(p.User), p.Type, len(p.Likes), formatTime(p.CreatedAt), truncate(a.oneLine(p.Content), 60))
	}
	return tw.Flush()
}

func (a *App) printPost(p *model.Post) error {
	a.printf("#%d by %s (%s)\n", p.ID, a.authorName(p.User), p.Type)
	if !p.CreatedAt.IsZero() {
		a.printf("posted %s\n", formatTime(p.CreatedAt))
	}
	a.printf("\n%s\n\n", a.clean(p.Content))
	for _, u := range p.MediaURLs {
		a.printf("media: %s\n", a.clean(u))
	}
	a.printf("likes: %d  comments: %d\n", len(p.Likes), len(p.Comments))
	for _, c := range p.Comments {
		a.printf("  - %s\n", a.oneLine(c.Content))
	}
	return nil
}

func (a *App) printUser(u *model.User) error {
	a.printf("id:      %d\n", u.ID)
	a.printf("name:    %s\n", a.clean(u.Name))
	a.printf("email:   %s\n", a.clean(u.Email))
	if u.Bio != "" {
		a.printf("bio:     %s\n", a.oneLine(u.Bio))
	}
	if u.ProfilePicture != "" {
		a.printf("picture: %s\n", a.clean(u.ProfilePicture))
	}
	return nil
}

func (a *App) printUsers(users []model.User) error {
	if len(users) == 0 {
		a.printf("no users\n")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, a.clean(u.Name), a.clean(u.Email))
	}
	return tw.Flush()
}

func (a *App) printPlans(plans []model.LearningPlan) error {
	if len(plans) == 0 {
		a.printf("no learning plans\n")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tSTATUS\tSTEPS\tTARGET\tTITLE")
	for _, p := range plans {
		target := "-"
		if p.TargetCompletionDate != nil {
			target = p.TargetCompletionDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, a.authorName(p.User), p.Status, len(p.Steps), target, truncate(a.oneLine(p.Title), 50))
	}
	return tw.Flush()
}

func (a *App) printPlan(p *model.LearningPlan) error {
	a.printf("#%d %s [%s]\n", p.ID, a.clean(p.Title), p.Status)
	if p.Description != "" {
		a.printf("%s\n", a.clean(p.Description))
	}
	if p.TargetCompletionDate != nil {
		a.printf("target: %s\n", p.TargetCompletionDate.Format("2006-01-02"))
	}
	for _, s := range p.Steps {
		a.printf("  %d. %s [%s]\n", s.OrderIndex+1, a.oneLine(s.Title), s.Status)
		if s.ResourceURL != "" {
			a.printf("     %s\n", a.clean(s.ResourceURL))
		}
	}
	return nil
}

func (a *App) printNotification(n model.Notification) {
	mark := " "
	if !n.Read {
		mark = "*"
	}
	a.printf("%s %s [%s] %s\n", mark, formatTime(n.CreatedAt), n.Type, a.oneLine(n.Message))
}

func (a *App) printNotifications(items []model.Notification) error {
	if len(items) == 0 {
		a.printf("no notifications\n")
		return nil
	}
	for _, n := range items {
		a.printNotification(n)
	}
	return nil
}

func (a *App) printPageFooter(number, totalPages int, totalElements int64) {
	if totalPages > 0 {
		a.printf("page %d/%d (%d total)\n", number+1, totalPages, totalElements)
	}
}

func (a *App) authorName(u *model.User) string {
	if u == nil {
		return "-"
	}
	return a.clean(u.Name)
}

// oneLine は一覧表示用に改行をスペースに置き換える。
func (a *App) oneLine(s string) string {
	return strings.Join(strings.Fields(a.clean(s)), " ")
}

// formatTime はバックエンドの壁時計の時刻をそのまま表示する。
func formatTime(t model.LocalDateTime) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// parseID は引数のIDを解析する。
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewClientValidationError(fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}
