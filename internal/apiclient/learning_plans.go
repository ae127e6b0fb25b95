package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/skillshare/internal/model"
)

// LearningPlansService は学習プランを扱う。学習プランは常にJSONで送信する。
type LearningPlansService service

// GetAll は公開されている学習プランを返す。
func (s *LearningPlansService) GetAll(ctx context.Context, p Pagination) (*model.Page[model.LearningPlan], error) {
	return s.list(ctx, "/learning-plans", p)
}

// GetMyPlans は自分の学習プランを返す。
func (s *LearningPlansService) GetMyPlans(ctx context.Context, p Pagination) (*model.Page[model.LearningPlan], error) {
	return s.list(ctx, "/learning-plans/my-plans", p)
}

func (s *LearningPlansService) list(ctx context.Context, path string, p Pagination) (*model.Page[model.LearningPlan], error) {
	var page model.Page[model.LearningPlan]
	if err := s.client.call(ctx, http.MethodGet, path, p.Query(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Create は学習プランを作成する。
// タイトルか説明が空のステップは除外し、有効なステップが残らない場合は
// リクエストせずにClientValidationFailureを返す。
func (s *LearningPlansService) Create(ctx context.Context, in model.LearningPlanInput) (*model.LearningPlan, error) {
	return s.save(ctx, http.MethodPost, "/learning-plans", in)
}

// Update は学習プランを置き換える。検証規則はCreateと同じ。
func (s *LearningPlansService) Update(ctx context.Context, id int64, in model.LearningPlanInput) (*model.LearningPlan, error) {
	return s.save(ctx, http.MethodPut, planPath(id), in)
}

// Delete は学習プランを削除する。
func (s *LearningPlansService) Delete(ctx context.Context, id int64) error {
	return s.client.call(ctx, http.MethodDelete, planPath(id), nil, nil, nil)
}

func (s *LearningPlansService) save(ctx context.Context, method, path string, in model.LearningPlanInput) (*model.LearningPlan, error) {
	valid, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	body, err := encodePayload(valid, "", nil)
	if err != nil {
		return nil, err
	}

	var plan model.LearningPlan
	if err := s.client.call(ctx, method, path, nil, body, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// validate は送信前の入力検証を行い、空のステップを除外した入力を返す。
func (s *LearningPlansService) validate(in model.LearningPlanInput) (model.LearningPlanInput, error) {
	out := model.LearningPlanInput{
		Title:                strings.TrimSpace(in.Title),
		Description:          strings.TrimSpace(in.Description),
		TargetCompletionDate: in.TargetCompletionDate,
	}
	if out.Title == "" {
		return out, model.NewClientValidationError("タイトルを入力してください。")
	}

	for i, step := range in.Steps {
		step.Title = strings.TrimSpace(step.Title)
		step.Description = strings.TrimSpace(step.Description)
		step.ResourceURL = strings.TrimSpace(step.ResourceURL)
		if step.Title == "" || step.Description == "" {
			continue
		}
		if step.ResourceURL != "" {
			if _, err := s.client.guard.CheckURL(step.ResourceURL); err != nil {
				return out, blockedURLError(fmt.Sprintf("ステップ%dのリソースURLは使用できません", i+1), err)
			}
		}
		out.Steps = append(out.Steps, step)
	}

	if len(out.Steps) == 0 {
		return out, model.NewClientValidationError("タイトルと説明のあるステップを1つ以上追加してください。")
	}
	return out, nil
}

func planPath(id int64) string {
	return fmt.Sprintf("/learning-plans/%d", id)
}
