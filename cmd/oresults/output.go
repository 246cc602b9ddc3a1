package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/padraicbc/oresults/results"
)

const clock = "15:04:05"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(clock)
}

func place(rank int) string {
	if rank == 0 {
		return "-"
	}
	return strconv.Itoa(rank) + "."
}

// cells returns place, name, status, value and gap of one result.
func cells(res results.Result) []string {
	value, behind := "-", ""
	if v := res.Value(); v != nil {
		value = v.String()
	}
	if res.Behind != nil && res.Rank > 1 {
		behind = res.Behind.String()
	}
	return []string{place(res.Rank), results.DisplayName(res.Subject), res.Status.String(), value, behind}
}

func writeRanking(w io.Writer, rs []results.Result) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PLACE\tNAME\tSTATUS\tRESULT\tBEHIND")
	for _, res := range rs {
		fmt.Fprintln(tw, strings.Join(cells(res), "\t"))
	}
	return tw.Flush()
}

func writeRelay(w io.Writer, teams []results.RelayResult) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PLACE\tTEAM\tSTATUS\tRESULT\tBEHIND")
	for _, t := range teams {
		fmt.Fprintln(tw, strings.Join(cells(t.Result), "\t"))
		for i := range t.Legs {
			leg, split := cells(t.Legs[i]), cells(t.Splits[i])
			fmt.Fprintf(tw, "\t  leg %d\t%s\t%s %s\t%s %s\n",
				i+1, leg[2], leg[3], leg[0], split[3], split[0])
		}
	}
	return tw.Flush()
}

func writeValidation(w io.Writer, val *results.Validation) error {
	fmt.Fprintf(w, "status: %s\n", val.Status)
	if val.OutOfOrder {
		fmt.Fprintln(w, "warning: card sequence disagrees with punch times")
	}
	if val.Laps > 0 {
		fmt.Fprintf(w, "laps: %d\n", val.Laps)
	}
	if val.Omitted > 0 {
		fmt.Fprintf(w, "omitted: %d\n", val.Omitted)
	}
	tw := newTable(w)
	if len(val.Entries) > 0 {
		fmt.Fprintln(tw, "MARK\tCONTROL\tSTATION\tTIME")
	}
	for _, d := range val.Entries {
		control, station, at := "-", "-", "-"
		if d.Control != nil {
			control = d.Control.Label
		}
		if d.Punch != nil {
			station = strconv.FormatInt(d.Punch.StationID, 10)
			at = fmtTime(d.Punch.PunchTime())
			if c := d.Punch.Control(); c != nil && d.Control == nil {
				control = c.Label
			}
		}
		mark := string(d.Mark)
		if mark == "" {
			mark = "special"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, control, station, at)
	}
	for _, leg := range val.Legs {
		fmt.Fprintf(tw, "leg %s\t%s\t\t\n", legName(leg.Index, leg.Leg), leg.Status)
	}
	return tw.Flush()
}

func writeScore(w io.Writer, sc *results.Score) error {
	value := "-"
	if sc.Value != nil {
		value = sc.Value.String()
	}
	fmt.Fprintf(w, "result: %s\nstart:  %s\nfinish: %s\n", value, fmtTime(sc.Start), fmtTime(sc.Finish))
	if sc.Runs > 0 {
		fmt.Fprintf(w, "runs: %d distance: %.1f km penalty: %s\n", sc.Runs, sc.Distance, results.FormatDuration(sc.Penalty))
	}
	if len(sc.Legs) == 0 {
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "LEG\tSTART\tFINISH\tTIME\tVALID")
	for _, leg := range sc.Legs {
		valid := strconv.FormatBool(leg.Valid)
		if leg.Defaulted {
			valid += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			legName(leg.Index, leg.Leg), fmtTime(leg.Start), fmtTime(leg.Finish), leg.Time, valid)
	}
	return tw.Flush()
}

func legName(i int, name string) string {
	if name != "" {
		return name
	}
	return strconv.Itoa(i + 1)
}
