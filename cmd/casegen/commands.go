package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/casegen/config"
	"github.com/c360studio/casegen/workflow"
	"github.com/spf13/cobra"
)

func generateCmd(g *globalFlags) *cobra.Command {
	var (
		in    GenerateInput
		globs []string
	)
	cmd := &cobra.Command{
		Use:   "generate [files or dirs...]",
		Short: "Extract requirements and generate test cases",
		Long: `Generate reads requirement text from --text ("-" reads stdin) and from
the given files, directories and globs, extracts requirements, generates
test cases for them and commits both to the workspace. Nothing is stored
unless every step succeeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				in.Text = string(data)
			}
			in.Patterns = append(append([]string{}, args...), globs...)

			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				out, err := app.Generate(ctx, in)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&in.Text, "text", "", `Requirement text ("-" reads stdin)`)
	cmd.Flags().StringVar(&in.Source, "source", "", "Source label (document, manual, jira, api)")
	cmd.Flags().StringSliceVar(&globs, "glob", nil, "Glob patterns selecting documents (repeatable)")
	cmd.Flags().BoolVar(&in.Analyze, "analyze", false, "Run the requirement review before generating")
	return cmd
}

func requirementsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "requirements",
		Short: "List stored requirements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				reqs, err := app.store.Requirements(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), reqs)
			})
		},
	}
}

func testCasesCmd(g *globalFlags) *cobra.Command {
	var requirementID string
	cmd := &cobra.Command{
		Use:   "testcases",
		Short: "List stored test cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				cases, err := app.store.TestCases(ctx)
				if err != nil {
					return err
				}
				if requirementID != "" {
					filtered := []workflow.TestCase{}
					for _, tc := range cases {
						if tc.RequirementID == requirementID {
							filtered = append(filtered, tc)
						}
					}
					cases = filtered
				}
				return writeJSON(cmd.OutOrStdout(), cases)
			})
		},
	}
	cmd.Flags().StringVar(&requirementID, "requirement", "", "Only cases linked to this requirement")
	return cmd
}

func traceCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "trace",
		Short: "Print the requirement coverage report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				report, err := app.Trace(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func improveCmd(g *globalFlags) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "improve <test-case-id>",
		Short: "Suggest improvements to a test case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				s, err := app.Improve(ctx, args[0], apply)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), s)
			})
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Save the suggested changes")
	return cmd
}

func automateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "automate <test-case-id>",
		Short: "Print an automation script for a test case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				script, err := app.Automate(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), script)
				return err
			})
		},
	}
}

func duplicatesCmd(g *globalFlags) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Detect duplicate test cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				report, err := app.Duplicates(ctx, merge)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "Delete the second case of each pair")
	return cmd
}

func impactCmd(g *globalFlags) *cobra.Command {
	var change string
	cmd := &cobra.Command{
		Use:   "impact",
		Short: "Rank test cases affected by a change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				results, err := app.Impact(ctx, change)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), results)
			})
		},
	}
	cmd.Flags().StringVar(&change, "change", "", "Description of the change")
	_ = cmd.MarkFlagRequired("change")
	return cmd
}

func healCmd(g *globalFlags) *cobra.Command {
	var change, rationale string
	cmd := &cobra.Command{
		Use:   "heal <test-case-id>",
		Short: "Rewrite a test case for a change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				tc, err := app.Heal(ctx, args[0], change, rationale)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), tc)
			})
		},
	}
	cmd.Flags().StringVar(&change, "change", "", "Description of the change")
	cmd.Flags().StringVar(&rationale, "rationale", "", "Why the test case is affected")
	_ = cmd.MarkFlagRequired("change")
	return cmd
}

func healImpactedCmd(g *globalFlags) *cobra.Command {
	var change string
	cmd := &cobra.Command{
		Use:   "heal-impacted",
		Short: "Analyze a change and heal every case that needs an update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				outcomes, err := app.HealImpacted(ctx, change)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), outcomes)
			})
		},
	}
	cmd.Flags().StringVar(&change, "change", "", "Description of the change")
	_ = cmd.MarkFlagRequired("change")
	return cmd
}

func bulkEditCmd(g *globalFlags) *cobra.Command {
	var (
		ids      []string
		status   string
		priority string
		tags     []string
		tagMode  string
	)
	cmd := &cobra.Command{
		Use:   "bulk-edit",
		Short: "Change status, priority or tags of many test cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := buildBulkUpdate(status, priority, tags, tagMode)
			if err != nil {
				return err
			}
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				updated, err := app.BulkEdit(ctx, ids, update)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), updated)
			})
		},
	}
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Test case ids")
	cmd.Flags().StringVar(&status, "status", "", "New status")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tags to apply")
	cmd.Flags().StringVar(&tagMode, "tag-mode", string(workflow.TagModeAppend), "append or overwrite")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

// buildBulkUpdate turns flag values into a validated update. Empty values
// leave the field alone.
func buildBulkUpdate(status, priority string, tags []string, tagMode string) (workflow.BulkUpdate, error) {
	var update workflow.BulkUpdate
	if status != "" {
		s := workflow.Status(status)
		update.Status = &s
	}
	if priority != "" {
		p := workflow.Priority(priority)
		update.Priority = &p
	}
	if len(tags) > 0 {
		update.Tags = &workflow.TagUpdate{Mode: workflow.TagMode(strings.ToLower(tagMode)), Values: tags}
	}
	if update.Status == nil && update.Priority == nil && update.Tags == nil {
		return update, fmt.Errorf("nothing to change: set --status, --priority or --tags")
	}
	if err := update.Validate(); err != nil {
		return update, err
	}
	return update, nil
}

func usageCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Print token usage per prompt intent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, nil, func(ctx context.Context, app *App) error {
				usage, err := app.Usage(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), usage)
			})
		},
	}
}

func watchCmd(g *globalFlags) *cobra.Command {
	var (
		initial     bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Regenerate the workspace when documents change",
		Long: `Watch keeps the workspace in step with a directory of requirement
documents. After each quiet period following a change, every document is
re-read and the workspace is replaced by a fresh run. A failed run keeps
the previous workspace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configure := func(cfg *config.Config) {
				if metricsAddr != "" {
					cfg.Metrics.Addr = metricsAddr
				}
			}
			return g.withApp(cmd, configure, func(ctx context.Context, app *App) error {
				return app.Watch(ctx, args[0], initial)
			})
		},
	}
	cmd.Flags().BoolVar(&initial, "initial", true, "Generate from the current documents before watching")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func initCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(newLogger(cmd.ErrOrStderr(), g.logLevel)).EnsureUserConfig()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
