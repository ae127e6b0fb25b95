package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitoshi/skillshare/internal/apiclient"
	"github.com/hitoshi/skillshare/internal/model"
	"github.com/hitoshi/skillshare/internal/resource"
)

type postListFunc func(ctx context.Context, p apiclient.Pagination) (*model.Page[model.Post], error)

// pageFlags は一覧系コマンドの共通フラグ。
type pageFlags struct {
	page  int
	size  int
	pages int
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", -1, "fetch a single page (0-based)")
	cmd.Flags().IntVar(&f.size, "size", apiclient.DefaultSize, "page size")
	cmd.Flags().IntVar(&f.pages, "pages", 1, "number of pages to read from the first page")
}

func (a *App) feedCommand() *cobra.Command {
	var flags pageFlags
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the personalised feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			return a.listPosts(cmd.Context(), a.client.Posts.GetFeed, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *App) exploreCommand() *cobra.Command {
	var flags pageFlags
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Show all posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			return a.listPosts(cmd.Context(), a.client.Posts.GetAll, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// listPosts は--page指定時はそのページのみ、それ以外は先頭から--pages分を読み進めて表示する。
func (a *App) listPosts(ctx context.Context, list postListFunc, flags pageFlags) error {
	if flags.page >= 0 {
		page, err := list(ctx, apiclient.Pagination{Page: flags.page, Size: flags.size})
		if err != nil {
			return err
		}
		return a.emit(page, func() error {
			if err := a.printPosts(page.Content); err != nil {
				return err
			}
			a.printPageFooter(page.Number, page.TotalPages, page.TotalElements)
			return nil
		})
	}

	pager := resource.NewPager(func(ctx context.Context, page, size int) (*model.Page[model.Post], error) {
		return list(ctx, apiclient.Pagination{Page: page, Size: size})
	}, flags.size)

	for i := 0; i < max(flags.pages, 1) && pager.HasNext(); i++ {
		if _, err := pager.Next(ctx); err != nil {
			return err
		}
	}

	items := pager.Items()
	return a.emit(items, func() error {
		if err := a.printPosts(items); err != nil {
			return err
		}
		if cur := pager.Current(); cur != nil {
			a.printPageFooter(cur.Number, cur.TotalPages, cur.TotalElements)
		}
		return nil
	})
}

func (a *App) postCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create, show and modify posts",
	}
	cmd.AddCommand(
		a.postCreateCommand(),
		a.postShowCommand(),
		a.postEditCommand(),
		a.postDeleteCommand(),
		a.postLikeCommand("like", "Like a post"),
		a.postLikeCommand("unlike", "Remove a like from a post"),
		a.postLikeCommand("toggle-like", "Like or unlike a post depending on its current state"),
	)
	return cmd
}

func (a *App) postCreateCommand() *cobra.Command {
	var (
		content   string
		postType  string
		mediaURLs []string
		files     []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post, optionally with media files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}

			attachments, err := openAttachments(files)
			if err != nil {
				return err
			}
			defer closeAttachments(attachments)

			post, err := a.client.Posts.Create(cmd.Context(), model.PostInput{
				Content:   content,
				Type:      model.PostType(postType),
				MediaURLs: mediaURLs,
			}, attachments...)
			if err != nil {
				return err
			}
			return a.emit(post, func() error {
				a.printf("created post #%d\n", post.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "post text")
	cmd.Flags().StringVar(&postType, "type", string(model.PostTypeSkillSharing), "SKILL_SHARING, LEARNING_PROGRESS or LEARNING_PLAN")
	cmd.Flags().StringArrayVar(&mediaURLs, "media-url", nil, "already uploaded media URL (repeatable)")
	cmd.Flags().StringArrayVar(&files, "file", nil, "media file to upload with the post (repeatable)")
	return cmd
}

func (a *App) postShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			post, err := a.client.Posts.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(post, func() error { return a.printPost(post) })
		},
	}
}

func (a *App) postEditCommand() *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Replace the text of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			post, err := a.client.Posts.Update(cmd.Context(), id, content)
			if err != nil {
				return err
			}
			return a.emit(post, func() error { return a.printPost(post) })
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new post text")
	return cmd
}

func (a *App) postDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.Posts.Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.printf("deleted post #%d\n", id)
			return nil
		},
	}
}

// postLikeCommand はlike/unlike/toggle-likeを生成する。
func (a *App) postLikeCommand(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.requireLogin()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var post *model.Post
			switch use {
			case "like":
				post, err = a.client.Posts.Like(ctx, id)
			case "unlike":
				post, err = a.client.Posts.Unlike(ctx, id)
			default:
				current, getErr := a.client.Posts.GetByID(ctx, id)
				if getErr != nil {
					return getErr
				}
				post, err = a.client.Posts.ToggleLike(ctx, current, user.ID)
			}
			if err != nil {
				return err
			}

			return a.emit(post, func() error {
				state := "not liked"
				if post.LikedBy(user.ID) {
					state = "liked"
				}
				a.printf("post #%d: %s (%d likes)\n", post.ID, state, len(post.Likes))
				return nil
			})
		},
	}
}

// openAttachments はパスごとにファイルを開く。失敗した場合は開いたファイルを閉じる。
func openAttachments(paths []string) ([]*apiclient.Attachment, error) {
	var out []*apiclient.Attachment
	for _, p := range paths {
		att, err := apiclient.OpenAttachment(p)
		if err != nil {
			closeAttachments(out)
			return nil, model.NewClientValidationError(fmt.Sprintf("cannot read %s: %v", p, err))
		}
		out = append(out, att)
	}
	return out, nil
}

func closeAttachments(atts []*apiclient.Attachment) {
	for _, att := range atts {
		att.Close()
	}
}
