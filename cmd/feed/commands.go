package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"momentfeed/cmd/app"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/feed"
	"momentfeed/internal/models"
	"momentfeed/internal/repository"
	"momentfeed/internal/storage"
)

func loginCmd(opts *rootOptions) *cobra.Command {
	var account, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and cache the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("FEED_PASSWORD")
			}
			return run(cmd, opts, false, func(ctx context.Context, a *app.App) error {
				user, err := a.Session.Login(ctx, account, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", user.Name, user.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&account, "account", "u", "", "Account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (or FEED_PASSWORD)")
	return cmd
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, false, func(ctx context.Context, a *app.App) error {
				return a.Session.Logout(ctx)
			})
		},
	}
}

func whoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				user := a.Session.CurrentUser()
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", user.ID, user.Account, user.Name, user.Role)
				return nil
			})
		},
	}
}

func feedCmd(opts *rootOptions) *cobra.Command {
	var pages int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				if err := loadPages(ctx, a.Feed, pages); err != nil {
					return err
				}
				snap := a.Feed.Snapshot()
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				}
				for _, p := range snap.Posts {
					printPost(cmd.OutOrStdout(), p, a.Feed.CanDelete(p.Post))
				}
				if snap.HasMore {
					fmt.Fprintln(cmd.OutOrStdout(), "… more posts available (use --pages)")
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&pages, "pages", "n", 1, "Number of pages to load")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the feed as JSON")
	return cmd
}

// loadPages fetches the first page and keeps appending while more exist.
func loadPages(ctx context.Context, f *feed.Controller, pages int) error {
	if err := f.Refresh(ctx); err != nil {
		return err
	}
	for i := 1; i < pages; i++ {
		snap := f.Snapshot()
		if !snap.HasMore {
			break
		}
		if err := f.FetchPage(ctx, snap.Cursor.Page+1, feed.Append); err != nil {
			return err
		}
	}
	return nil
}

func printPost(w io.Writer, p feed.PostView, deletable bool) {
	header := fmt.Sprintf("#%d %s · %s", p.ID, p.Author.Name, p.CreatedAgoLabel)
	if p.Author.Verified {
		header += " ✓"
	}
	if p.Location != "" {
		header += " · " + p.Location
	}
	if deletable {
		header += " [可删除]"
	}
	fmt.Fprintln(w, header)
	if p.TextContent != "" {
		fmt.Fprintf(w, "  %s\n", p.TextContent)
	}
	for _, img := range p.Images {
		fmt.Fprintf(w, "  [%s] %s\n", p.Layout, img)
	}
	fmt.Fprintf(w, "  ♥ %d  💬 %d  ↗ %d\n\n", p.LikeCount, p.CommentCount, p.ShareCount)
}

func deleteCmd(opts *rootOptions) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				if err := loadPages(ctx, a.Feed, pages); err != nil {
					return err
				}
				if _, ok := a.Feed.Post(id); !ok {
					return fmt.Errorf("%w: post %d not found in the first %d pages", apperrors.ErrInvalidTarget, id, pages)
				}
				return a.Feed.DeletePost(ctx, id)
			})
		},
	}
	cmd.Flags().IntVarP(&pages, "pages", "n", 5, "Pages to search for the post")
	return cmd
}

func commentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Read and write comments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <post-id>",
		Short: "List comments of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				comments, err := a.Comments.Load(ctx, postID)
				if err != nil {
					return err
				}
				for _, c := range comments {
					fmt.Fprintf(cmd.OutOrStdout(), "#%d %s · %s\n  %s\n", c.ID, c.UserName, a.Comments.Label(c), c.Content)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <post-id> <text>",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				_, err := a.Comments.Submit(ctx, postID, text)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <post-id> <comment-id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			commentID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				if _, err := a.Comments.Load(ctx, postID); err != nil {
					return err
				}
				return a.Comments.Delete(ctx, postID, commentID)
			})
		},
	})

	return cmd
}

func postCmd(opts *rootOptions) *cobra.Command {
	var text, location string
	var images []string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a new post",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				if !a.Feed.CanCreate() {
					return apperrors.ErrUnauthorized
				}
				a.Composer.SetText(text)
				a.Composer.SetLocation(location)
				for _, path := range images {
					if err := addFile(ctx, a, path); err != nil {
						return err
					}
				}
				record, err := a.Composer.Publish(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published #%d\n", record.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "Post text (up to 500 characters)")
	cmd.Flags().StringVarP(&location, "location", "l", "", "Location label")
	cmd.Flags().StringSliceVarP(&images, "image", "i", nil, "Image or video file to attach (repeatable, up to 9)")
	return cmd
}

func addFile(ctx context.Context, a *app.App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	_, err = a.Composer.AddImage(ctx, filepath.Base(path), f, info.Size())
	return err
}

func uploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a media file and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, false, func(ctx context.Context, a *app.App) error {
				if m, ok := a.Uploader.(*storage.MinIOUploader); ok {
					if err := m.EnsureBucket(ctx); err != nil {
						return err
					}
				}
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				info, err := f.Stat()
				if err != nil {
					return err
				}
				result, err := a.Uploader.Upload(ctx, filepath.Base(args[0]), f, info.Size())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", result.Kind, result.MimeType, result.URL)
				return nil
			})
		},
	}
}

func usersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var page, limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				result, err := a.Services.User.List(ctx, page, limit)
				if err != nil {
					return err
				}
				for _, u := range result.Users {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", u.ID, u.Account, u.Name, u.Role)
				}
				return nil
			})
		},
	}
	list.Flags().IntVar(&page, "page", 1, "Page number")
	list.Flags().IntVar(&limit, "limit", 20, "Page size")

	var req repository.CreateUserRequest
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = models.Role(role)
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				user, err := a.Services.User.Create(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user #%d\n", user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&req.Account, "account", "", "Account name")
	create.Flags().StringVar(&req.Password, "password", "", "Password")
	create.Flags().StringVar(&req.Name, "name", "", "Display name")
	create.Flags().StringVar(&role, "role", string(models.RoleNormal), "Role (normal or admin)")

	remove := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				return a.Services.User.Delete(ctx, id)
			})
		},
	}

	cmd.AddCommand(list, create, remove)
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a valid id", apperrors.ErrInvalidTarget, raw)
	}
	return id, nil
}
