package app

import (
	"github.com/spf13/cobra"

	"github.com/hitoshi/skillshare/internal/apiclient"
	"github.com/hitoshi/skillshare/internal/model"
)

func (a *App) usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Look up users and manage your profile",
	}
	cmd.AddCommand(
		a.usersShowCommand(),
		a.usersSearchCommand(),
		a.usersFollowCommand("follow", "Follow a user"),
		a.usersFollowCommand("unfollow", "Stop following a user"),
		a.usersAvatarCommand(),
		a.usersUpdateCommand(),
	)
	return cmd
}

func (a *App) usersShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [ID]",
		Short: "Show a user (yourself when ID is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			var (
				user *model.User
				err  error
			)
			if len(args) == 0 {
				user, err = a.client.Users.GetCurrentUser(cmd.Context())
			} else {
				id, idErr := parseID(args[0])
				if idErr != nil {
					return idErr
				}
				user, err = a.client.Users.GetByID(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			return a.emit(user, func() error { return a.printUser(user) })
		},
	}
}

func (a *App) usersSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search users by name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			users, err := a.client.Users.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(users, func() error { return a.printUsers(users) })
		},
	}
}

func (a *App) usersFollowCommand(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if use == "follow" {
				err = a.client.Users.Follow(cmd.Context(), id)
			} else {
				err = a.client.Users.Unfollow(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			a.printf("%sed user #%d\n", use, id)
			return nil
		},
	}
}

func (a *App) usersAvatarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "avatar FILE",
		Short: "Upload a new profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			atts, err := openAttachments(args)
			if err != nil {
				return err
			}
			defer closeAttachments(atts)

			user, err := a.client.Users.UpdateProfilePicture(cmd.Context(), atts[0])
			if err != nil {
				return err
			}
			a.sess.UpdateUser(*user)
			return a.emit(user, func() error { return a.printUser(user) })
		},
	}
}

func (a *App) usersUpdateCommand() *cobra.Command {
	var name, bio, picture string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your name and bio, optionally with a new picture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := a.requireLogin()
			if err != nil {
				return err
			}

			update := model.ProfileUpdate{Name: current.Name, Bio: current.Bio}
			if cmd.Flags().Changed("name") {
				update.Name = name
			}
			if cmd.Flags().Changed("bio") {
				update.Bio = bio
			}

			var att *apiclient.Attachment
			if picture != "" {
				atts, err := openAttachments([]string{picture})
				if err != nil {
					return err
				}
				defer closeAttachments(atts)
				att = atts[0]
			}

			user, err := a.client.Users.UpdateProfile(cmd.Context(), update, att)
			if err != nil {
				return err
			}
			a.sess.UpdateUser(*user)
			return a.emit(user, func() error { return a.printUser(user) })
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&bio, "bio", "", "profile bio")
	cmd.Flags().StringVar(&picture, "picture", "", "profile picture file")
	return cmd
}
