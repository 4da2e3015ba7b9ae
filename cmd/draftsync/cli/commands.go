package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/blogdraft/internal/adapters/draftfile"
	"github.com/jsamuelsen/blogdraft/internal/app"
	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

const defaultPushWorkers = 4

func newPublishCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a draft file",
		Long: `Publish the post in <file>. A file that has been auto-saved before is
published under the same id; otherwise a new post is created and its id is
written back to the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			doc, err := draftfile.Read(path)
			if err != nil {
				return err
			}

			post, err := e.blogs.Publish(cmd.Context(), doc.Draft, doc.ID)
			if err != nil {
				return fmt.Errorf("publishing %s: %s", path, publicMessage(err))
			}

			if err := recordID(path, doc.ID, post.ID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "published %q (%s)\n", post.Title, post.ID)

			return nil
		},
	}
}

func newPushCmd(e *env) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "push <file>...",
		Short: "Save one or more draft files as drafts",
		Long: `Save every file once as a draft. Files whose title and content are both
empty are skipped. Stops at the first file the API rejects.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &syncWriter{w: cmd.OutOrStdout()}

			return app.FanOut(cmd.Context(), workers, args, func(ctx context.Context, path string) error {
				return e.push(ctx, out, path)
			})
		},
	}

	cmd.Flags().IntVar(&workers, "workers", defaultPushWorkers, "files saved concurrently")

	return cmd
}

func (e *env) push(ctx context.Context, out *syncWriter, path string) error {
	doc, err := draftfile.Read(path)
	if err != nil {
		return err
	}

	if doc.Draft.Blank() {
		out.Printf("skipped %s: title and content are empty\n", path)
		return nil
	}

	post, err := e.blogs.SaveDraft(ctx, doc.Draft, doc.ID)
	if err != nil {
		return fmt.Errorf("saving %s: %s", path, publicMessage(err))
	}

	if err := recordID(path, doc.ID, post.ID); err != nil {
		return err
	}

	out.Printf("saved %s as %s\n", path, post.ID)

	return nil
}

func newListCmd(e *env) *cobra.Command {
	var (
		status string
		tags   string
		filter ports.PostFilter
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts on the server, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" {
				s, err := domain.ParseStatus(status)
				if err != nil {
					return fmt.Errorf("--status: %w", err)
				}

				filter.Status = s
			}

			if tags != "" {
				filter.Tags = domain.ParseTags(tags)
			}

			page, err := e.blogs.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("listing posts: %s", publicMessage(err))
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tUPDATED\tTITLE")

			for _, p := range page.Posts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Status, p.UpdatedAt.Local().Format(time.DateTime), p.Title)
			}

			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d posts\n", page.Page, page.TotalPages, page.Total)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&status, "status", "", "only posts with this status (draft or published)")
	f.StringVar(&tags, "tags", "", "comma separated tags; posts carrying any of them match")
	f.IntVar(&filter.Page, "page", 0, "page number, starting at 1")
	f.IntVar(&filter.Limit, "limit", 0, fmt.Sprintf("posts per page, at most %d", ports.MaxPageSize))

	return cmd
}

func newDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.blogs.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting %s: %s", args[0], publicMessage(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])

			return nil
		},
	}
}

// recordID writes the server-assigned id back to the draft file when it
// changed.
func recordID(path, known, id string) error {
	if id == "" || id == known {
		return nil
	}

	if err := draftfile.SetID(path, id); err != nil {
		return fmt.Errorf("recording post id in %s: %w", path, err)
	}

	return nil
}
