package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/padraicbc/oresults/results"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print a ranking",
}

var rankCourseCmd = &cobra.Command{
	Use:   "course [code]",
	Short: "Rank every run on a course",
	Args:  cobra.ExactArgs(1),
	RunE:  runRankCourse,
}

var rankCategoryCmd = &cobra.Command{
	Use:   "category [name]",
	Short: "Rank the runners or teams of a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runRankCategory,
}

var rankOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "List runs not yet read out",
	RunE:  runRankOpen,
}

var (
	rankReverse   bool
	rankSkip      bool
	rankTeams     bool
	rankValidator string
	rankScorer    string
	rankLeg       int
)

func init() {
	rankCmd.AddCommand(rankCourseCmd, rankCategoryCmd, rankOpenCmd)

	rankCmd.PersistentFlags().BoolVar(&rankReverse, "reverse", false, "best last")
	rankCmd.PersistentFlags().BoolVar(&rankSkip, "skip", false, "leave out members that cannot be scored")
	rankCmd.PersistentFlags().StringVar(&rankValidator, "validator", "", "validator kind (default: event default)")
	rankCmd.PersistentFlags().StringVar(&rankScorer, "scorer", "", "scorer kind (default: event default)")
	rankCmd.PersistentFlags().IntVar(&rankLeg, "leg", 0, "leg index for leg and split strategies")

	rankCategoryCmd.Flags().BoolVar(&rankTeams, "teams", false, "rank teams instead of runners")
}

func rankingOptions(e *results.Event) (results.RankingOptions, error) {
	opts := results.RankingOptions{Reverse: rankReverse}
	if rankSkip {
		opts.Unscoreable = results.PolicySkip
	}
	args := results.Args{Leg: rankLeg}
	var err error
	if rankValidator != "" {
		if opts.Validator, err = e.Validator(rankValidator, args); err != nil {
			return opts, err
		}
	}
	if rankScorer != "" {
		if opts.Scorer, err = e.Scorer(rankScorer, args); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func printRanking(cmd *cobra.Command, r results.Rankable) error {
	e, done, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer done()
	opts, err := rankingOptions(e)
	if err != nil {
		return err
	}
	return writeRanking(cmd.OutOrStdout(), e.Ranking(r, opts).Results())
}

func runRankCourse(cmd *cobra.Command, args []string) error {
	e, done, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer done()
	course := e.Snapshot().CourseByCode(args[0])
	if course == nil {
		return fmt.Errorf("no course %q", args[0])
	}
	opts, err := rankingOptions(e)
	if err != nil {
		return err
	}
	return writeRanking(cmd.OutOrStdout(), e.Ranking(results.CourseRuns{CourseID: course.ID}, opts).Results())
}

func runRankCategory(cmd *cobra.Command, args []string) error {
	e, done, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer done()
	var id int64
	for _, c := range e.Snapshot().Categories() {
		if strings.EqualFold(c.Name, args[0]) {
			id = c.ID
		}
	}
	if id == 0 {
		return fmt.Errorf("no category %q", args[0])
	}
	opts, err := rankingOptions(e)
	if err != nil {
		return err
	}
	if !rankTeams {
		return writeRanking(cmd.OutOrStdout(), e.Ranking(results.CategoryRunners{CategoryID: id}, opts).Results())
	}
	teams := results.CategoryTeams{CategoryID: id}
	if e.Options().Kind != results.KindRelay {
		return writeRanking(cmd.OutOrStdout(), e.Ranking(teams, opts).Results())
	}
	rr, err := e.RelayRanking(teams, opts)
	if err != nil {
		return err
	}
	return writeRelay(cmd.OutOrStdout(), rr.Teams())
}

func runRankOpen(cmd *cobra.Command, args []string) error {
	return printRanking(cmd, results.OpenRuns{})
}
