package model

import "encoding/json"

// PlanStatus は学習プランの進捗状態。
type PlanStatus string

const (
	PlanStatusNotStarted PlanStatus = "NOT_STARTED"
	PlanStatusInProgress PlanStatus = "IN_PROGRESS"
	PlanStatusCompleted  PlanStatus = "COMPLETED"
	PlanStatusOnHold     PlanStatus = "ON_HOLD"
)

// StepStatus は学習ステップの進捗状態。PlanStatusの部分集合。
type StepStatus string

const (
	StepStatusNotStarted StepStatus = "NOT_STARTED"
	StepStatusInProgress StepStatus = "IN_PROGRESS"
	StepStatusCompleted  StepStatus = "COMPLETED"
)

// LearningPlan は学習プランを表す。Stepsは順序付き。
type LearningPlan struct {
	ID                   int64          `json:"id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	TargetCompletionDate *LocalDateTime `json:"targetCompletionDate,omitempty"`
	Status               PlanStatus     `json:"status"`
	Steps                []Step         `json:"steps"`
	User                 *User          `json:"user,omitempty"`
}

// UnmarshalJSON はstatus欠落時にNOT_STARTEDを補い、stepsを非nilにする。
func (p *LearningPlan) UnmarshalJSON(data []byte) error {
	type alias LearningPlan
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = PlanStatusNotStarted
	}
	if a.Steps == nil {
		a.Steps = []Step{}
	}
	*p = LearningPlan(a)
	return nil
}

// Step は学習プランの1ステップを表す。
type Step struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ResourceURL string     `json:"resourceUrl,omitempty"`
	OrderIndex  int        `json:"orderIndex"`
	Status      StepStatus `json:"status"`
}

// UnmarshalJSON はstatus欠落時にNOT_STARTEDを補う。
func (s *Step) UnmarshalJSON(data []byte) error {
	type alias Step
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = StepStatusNotStarted
	}
	*s = Step(a)
	return nil
}

// LearningPlanInput は学習プランの作成・更新リクエストのJSON表現。
type LearningPlanInput struct {
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	TargetCompletionDate *LocalDateTime `json:"targetCompletionDate,omitempty"`
	Steps                []StepInput    `json:"steps"`
}

// StepInput は学習ステップの入力。
type StepInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ResourceURL string `json:"resourceUrl,omitempty"`
}
