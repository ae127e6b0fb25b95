package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hitoshi/skillshare/internal/apiclient"
	"github.com/hitoshi/skillshare/internal/model"
	"github.com/hitoshi/skillshare/internal/resource"
)

func (a *App) notificationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read and manage notifications",
	}
	cmd.AddCommand(
		a.notificationsListCommand(),
		a.notificationsCountCommand(),
		a.notificationsMutateCommand("mark-read", "Mark every notification as read", a.markAllAsRead),
		a.notificationsMutateCommand("clear-read", "Delete notifications that were already read", a.clearRead),
	)
	return cmd
}

func (a *App) notificationsListCommand() *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			result, err := a.client.Notifications.GetAll(cmd.Context(), apiclient.Pagination{Page: page, Size: size})
			if err != nil {
				return err
			}
			return a.emit(result, func() error {
				if err := a.printNotifications(result.Content); err != nil {
					return err
				}
				a.printPageFooter(result.Number, result.TotalPages, result.TotalElements)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", apiclient.DefaultPage, "page number (0-based)")
	cmd.Flags().IntVar(&size, "size", apiclient.DefaultSize, "page size")
	return cmd
}

func (a *App) notificationsCountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show the number of unread notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			count, err := a.client.Notifications.GetUnreadCount(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(map[string]int64{"count": count}, func() error {
				a.printf("%d\n", count)
				return nil
			})
		},
	}
}

// notificationsMutateCommand は変更操作の後に未読件数を取り直して表示する。
func (a *App) notificationsMutateCommand(use, short string, mutate func(ctx context.Context) (struct{}, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()

			unread := resource.NewLoader(a.client.Notifications.GetUnreadCount)
			if _, err := resource.Mutate(ctx, unread, mutate); err != nil {
				return err
			}

			state := unread.State()
			return a.emit(map[string]int64{"unread": state.Data}, func() error {
				a.printf("done, %d unread\n", state.Data)
				return nil
			})
		},
	}
}

func (a *App) markAllAsRead(ctx context.Context) (struct{}, error) {
	return struct{}{}, a.client.Notifications.MarkAllAsRead(ctx)
}

func (a *App) clearRead(ctx context.Context) (struct{}, error) {
	return struct{}{}, a.client.Notifications.ClearRead(ctx)
}

// notificationPrinter はウォッチャーに渡すハンドラー。
func (a *App) notificationPrinter(n model.Notification) {
	if a.jsonOut {
		_ = a.printJSON(n)
		return
	}
	a.printNotification(n)
}
