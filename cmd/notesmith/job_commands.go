package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notesmith/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a URL for note generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				resp, err := jobs.Submit(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() string { return renderSubmit(resp) })
			})
		},
	}
}

func newFeedCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "feed <url>",
		Short: "Queue the newest episodes of a podcast or video feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				resp, err := jobs.SubmitFeed(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() string {
					if len(resp.Entries) == 0 {
						return "Feed has no entries\n"
					}
					return renderTable(feedColumns, buildFeedRows(resp.Entries))
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to submit (0 uses feeds.max_items)")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				list, err := jobs.List(cmd.Context(), strings.Join(statuses, ","))
				if err != nil {
					return err
				}
				if list == nil {
					list = []api.Job{}
				}
				return ctx.emit(cmd, api.JobListResponse{Jobs: list}, func() string {
					if len(list) == 0 {
						return "No jobs\n"
					}
					return renderTable(jobColumns, buildJobRows(list))
				})
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by job status (repeatable or comma separated)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var sections bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job and its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				job, err := jobs.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, job, func() string { return renderJobDetail(job, sections) })
			})
		},
	}
	cmd.Flags().BoolVar(&sections, "sections", false, "Render notes as parsed sections")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Resume a failed or halted job from its last checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				resp, err := jobs.Retry(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() string { return renderSubmit(resp) })
			})
		},
	}
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Re-run note synthesis for a transcribed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				resp, err := jobs.Regenerate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() string { return renderSubmit(resp) })
			})
		},
	}
}

func newRegenerateAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate-all",
		Short: "Queue synthesis for every job with a transcript but no notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				resp, err := jobs.RegenerateAll(cmd.Context())
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() string {
					return fmt.Sprintf("Queued %d job(s) for note synthesis\n", resp.Queued)
				})
			})
		},
	}
}

func newHaltCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "halt <id>...",
		Short: "Stop jobs at their next checkpoint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				result, err := api.HaltJobsByID(cmd.Context(), jobs, args)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() string {
					var b strings.Builder
					for _, job := range result.Jobs {
						switch job.Outcome {
						case api.HaltUpdated:
							fmt.Fprintf(&b, "Job %s halted (was %s)\n", job.ID, job.PriorStatus)
						case api.HaltAlreadyCompleted:
							fmt.Fprintf(&b, "Job %s already completed\n", job.ID)
						case api.HaltAlreadyHalted:
							fmt.Fprintf(&b, "Job %s already halted\n", job.ID)
						case api.HaltNotFound:
							fmt.Fprintf(&b, "Job %s not found\n", job.ID)
						}
					}
					return b.String()
				})
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Delete jobs and their tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(jobs *api.JobService) error {
				result, err := api.RemoveJobsByID(cmd.Context(), jobs, args)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() string {
					var b strings.Builder
					for _, job := range result.Jobs {
						if job.Outcome == api.RemoveRemoved {
							fmt.Fprintf(&b, "Job %s removed\n", job.ID)
						} else {
							fmt.Fprintf(&b, "Job %s not found\n", job.ID)
						}
					}
					return b.String()
				})
			})
		},
	}
}
