package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/discuits/discuitsctl/pkg/provision"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	dim    = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

func outcomeColor(o provision.Outcome) *color.Color {
	switch o {
	case provision.OutcomeCreated, provision.OutcomeApplied:
		return green
	case provision.OutcomeExists:
		return dim
	case provision.OutcomeSkipped:
		return yellow
	default:
		return red
	}
}

// printReport writes one line per step followed by a summary
func printReport(w io.Writer, report *provision.Report) {
	for _, res := range report.Results {
		line := fmt.Sprintf("%-8s %-10s %s", outcomeColor(res.Outcome).Sprint(res.Outcome), res.Step, res.Target)
		switch {
		case res.Failed() && res.Err != nil:
			line += ": " + res.Err.Error()
		case res.Outcome == provision.OutcomeSkipped && res.Detail != "":
			line += " (" + res.Detail + ")"
		}
		_, _ = fmt.Fprintln(w, line)
	}

	_, _ = fmt.Fprintln(w)
	summary := fmt.Sprintf("%d steps", len(report.Results))
	for _, o := range provision.Outcomes {
		if n := report.Count(o); n > 0 {
			summary += fmt.Sprintf(", %d %s", n, o)
		}
	}
	if report.OK() {
		_, _ = bold.Fprintln(w, summary)
	} else {
		_, _ = red.Fprintln(w, summary)
	}
}
