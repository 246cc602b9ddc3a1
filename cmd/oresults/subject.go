package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/padraicbc/oresults/models"
	"github.com/padraicbc/oresults/results"
)

var validateCmd = &cobra.Command{
	Use:   "validate [run|runner|team] [id]",
	Short: "Show the validation of one subject",
	Args:  cobra.ExactArgs(2),
	RunE:  runValidate,
}

var scoreCmd = &cobra.Command{
	Use:   "score [run|runner|team] [id]",
	Short: "Show the score of one subject",
	Args:  cobra.ExactArgs(2),
	RunE:  runScore,
}

var strategyKind string

func init() {
	validateCmd.Flags().StringVar(&strategyKind, "validator", "", "validator kind (default: event default)")
	scoreCmd.Flags().StringVar(&strategyKind, "scorer", "", "scorer kind (default: event default)")
}

func parseRef(kind, id string) (models.Ref, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return models.Ref{}, fmt.Errorf("invalid id %q", id)
	}
	k := models.Kind(strings.ToLower(kind))
	switch k {
	case models.KindRun, models.KindRunner, models.KindTeam:
		return models.Ref{Kind: k, ID: n}, nil
	}
	return models.Ref{}, fmt.Errorf("kind must be run, runner or team, got %q", kind)
}

func lookup(e *results.Event, args []string) (results.Subject, error) {
	ref, err := parseRef(args[0], args[1])
	if err != nil {
		return nil, err
	}
	s, ok := e.Snapshot().Subject(ref)
	if !ok {
		return nil, fmt.Errorf("%s not found", ref)
	}
	return s, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	e, done, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer done()
	s, err := lookup(e, args)
	if err != nil {
		return err
	}
	var v results.Validator
	if strategyKind != "" {
		if v, err = e.Validator(strategyKind, results.Args{}); err != nil {
			return err
		}
	}
	val, err := e.Validate(s, v)
	if err != nil {
		return err
	}
	return writeValidation(cmd.OutOrStdout(), val)
}

func runScore(cmd *cobra.Command, args []string) error {
	e, done, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer done()
	s, err := lookup(e, args)
	if err != nil {
		return err
	}
	var sc results.Scorer
	if strategyKind != "" {
		if sc, err = e.Scorer(strategyKind, results.Args{}); err != nil {
			return err
		}
	}
	score, err := e.Score(s, sc)
	if err != nil {
		return err
	}
	return writeScore(cmd.OutOrStdout(), score)
}
