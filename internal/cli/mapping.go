package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/config"
	"quiz-assessment-service/internal/domain"
)

// NewMapCmd maps questions to a quiz from the command line. Without question ids every
// assignable question of the level is mapped.
func NewMapCmd(configPath *string) *cobra.Command {
	var (
		quizID, groupID, levelID string
		marks, negative          float64
	)
	cmd := &cobra.Command{
		Use:   "map [question ids...]",
		Short: "Map questions to a quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), *configPath, quizID, groupID, func(ctx context.Context, console *app.MappingConsole) error {
				if err := console.Load(ctx, levelID); err != nil {
					return err
				}
				if len(args) == 0 {
					console.SelectAll()
				}
				for _, id := range args {
					console.Selection().Select(id)
				}
				if cmd.Flags().Changed("marks") {
					console.Selection().SetAllMarks(marks)
				}
				if cmd.Flags().Changed("negative") {
					console.Selection().SetAllNegativeMarks(negative)
				}
				res, err := console.Commit(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "mapped %d questions, quiz %s now has %d (%d still assignable)\n",
					len(res.Mapped), quizID, res.QuestionCount, len(console.Pool().Unmapped))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id")
	cmd.Flags().StringVar(&groupID, "group", "", "question group id")
	cmd.Flags().StringVar(&levelID, "level", "", "restrict to one level")
	cmd.Flags().Float64Var(&marks, "marks", domain.DefaultMarks, "marks for every selected question")
	cmd.Flags().Float64Var(&negative, "negative", domain.DefaultNegativeMarks, "negative marks for every selected question")
	_ = cmd.MarkFlagRequired("quiz")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

// NewUnmapCmd removes mappings by id and reports stale ids individually.
func NewUnmapCmd(configPath *string) *cobra.Command {
	var quizID, groupID string
	cmd := &cobra.Command{
		Use:   "unmap <mapping ids...>",
		Short: "Remove question mappings from a quiz",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), *configPath, quizID, groupID, func(ctx context.Context, console *app.MappingConsole) error {
				if err := console.Load(ctx, ""); err != nil {
					return err
				}
				res, err := console.Unmap(ctx, args)
				if err != nil {
					return err
				}
				for _, o := range res.Outcomes {
					if !o.Removed {
						fmt.Fprintf(cmd.OutOrStdout(), "skipped %s: %s\n", o.MappingID, o.Error)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d mappings, quiz %s now has %d (%d assignable)\n",
					res.Removed, quizID, res.QuestionCount, len(console.Pool().Unmapped))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id")
	cmd.Flags().StringVar(&groupID, "group", "", "question group id")
	_ = cmd.MarkFlagRequired("quiz")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func withConsole(ctx context.Context, configPath, quizID, groupID string, fn func(context.Context, *app.MappingConsole) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	b, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	engine := app.NewMappingEngine(b.questions, b.quizzes, b.mappings)
	return fn(ctx, app.NewMappingConsole(engine, quizID, groupID))
}
