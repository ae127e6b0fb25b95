package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/skillshare/internal/apiclient"
	"github.com/hitoshi/skillshare/internal/model"
)

func (a *App) plansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Manage learning plans",
	}
	cmd.AddCommand(
		a.plansListCommand("list", "List all learning plans", func(ctx context.Context, p apiclient.Pagination) (*model.Page[model.LearningPlan], error) {
			return a.client.LearningPlans.GetAll(ctx, p)
		}),
		a.plansListCommand("mine", "List your learning plans", func(ctx context.Context, p apiclient.Pagination) (*model.Page[model.LearningPlan], error) {
			return a.client.LearningPlans.GetMyPlans(ctx, p)
		}),
		a.planSaveCommand(false),
		a.planSaveCommand(true),
		a.planDeleteCommand(),
	)
	return cmd
}

func (a *App) plansListCommand(use, short string, list func(context.Context, apiclient.Pagination) (*model.Page[model.LearningPlan], error)) *cobra.Command {
	var page, size int
	var detail bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			result, err := list(cmd.Context(), apiclient.Pagination{Page: page, Size: size})
			if err != nil {
				return err
			}
			return a.emit(result, func() error {
				if detail {
					for i := range result.Content {
						if err := a.printPlan(&result.Content[i]); err != nil {
							return err
						}
						a.printf("\n")
					}
				} else if err := a.printPlans(result.Content); err != nil {
					return err
				}
				a.printPageFooter(result.Number, result.TotalPages, result.TotalElements)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", apiclient.DefaultPage, "page number (0-based)")
	cmd.Flags().IntVar(&size, "size", apiclient.DefaultSize, "page size")
	cmd.Flags().BoolVar(&detail, "steps", false, "show the steps of every plan")
	return cmd
}

// planSaveCommand はcreateとupdateを生成する。updateはIDを引数に取る。
func (a *App) planSaveCommand(update bool) *cobra.Command {
	var (
		title       string
		description string
		target      string
		steps       []string
	)
	use, short, args := "create", "Create a learning plan", cobra.NoArgs
	if update {
		use, short, args = "update ID", "Replace a learning plan", cobra.ExactArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			in, err := buildPlanInput(title, description, target, steps)
			if err != nil {
				return err
			}

			var plan *model.LearningPlan
			if update {
				id, idErr := parseID(argv[0])
				if idErr != nil {
					return idErr
				}
				plan, err = a.client.LearningPlans.Update(cmd.Context(), id, in)
			} else {
				plan, err = a.client.LearningPlans.Create(cmd.Context(), in)
			}
			if err != nil {
				return err
			}
			return a.emit(plan, func() error { return a.printPlan(plan) })
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "plan title")
	cmd.Flags().StringVar(&description, "description", "", "plan description")
	cmd.Flags().StringVar(&target, "target", "", "target completion date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&steps, "step", nil, `step as "title|description|resource URL" (repeatable)`)
	return cmd
}

func (a *App) planDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a learning plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.LearningPlans.Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.printf("deleted learning plan #%d\n", id)
			return nil
		},
	}
}

// buildPlanInput はフラグの値から学習プランの入力を組み立てる。
// ステップの空欄の除去や必須チェックはクライアント側の検証に任せる。
func buildPlanInput(title, description, target string, steps []string) (model.LearningPlanInput, error) {
	in := model.LearningPlanInput{
		Title:       title,
		Description: description,
	}
	if target != "" {
		t, err := time.Parse("2006-01-02", target)
		if err != nil {
			return in, model.NewClientValidationError(fmt.Sprintf("invalid target date %q, want YYYY-MM-DD", target))
		}
		d := model.NewLocalDateTime(t)
		in.TargetCompletionDate = &d
	}
	for _, raw := range steps {
		parts := strings.SplitN(raw, "|", 3)
		step := model.StepInput{Title: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			step.Description = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			step.ResourceURL = strings.TrimSpace(parts[2])
		}
		in.Steps = append(in.Steps, step)
	}
	return in, nil
}
