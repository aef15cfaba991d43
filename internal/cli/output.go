package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/zenibako/runsheet-golang/runsheet"
)

func printCues(w io.Writer, cues []runsheet.Cue) {
	if len(cues) == 0 {
		fmt.Fprintln(w, "no cues")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMIN\tSTATUS\tTYPE\tTITLE\tTECH\tID")
	for _, c := range cues {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			c.ScheduledTime, c.DurationMinutes, c.Status, c.CueType, c.Title, technician(c), c.ID)
	}
	_ = tw.Flush()
}

func printBoard(w io.Writer, board []runsheet.BoardEntry) {
	if len(board) == 0 {
		fmt.Fprintln(w, "no cues")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMIN\tSTATUS\tDUE\tTITLE\tTECH\tID")
	for _, e := range board {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ScheduledTime, e.DurationMinutes, e.Status, e.Due, e.Title, technician(e.Cue), e.ID)
	}
	_ = tw.Flush()
}

func printStats(w io.Writer, runID string, s runsheet.Stats) {
	fmt.Fprintf(w, "%s: %d cues, %d upcoming, %d live, %d delayed, %d completed, %d skipped\n",
		runID, s.Total, s.Upcoming, s.Live, s.Delayed, s.Completed, s.Skipped)
}

func printCue(w io.Writer, c runsheet.Cue) {
	fmt.Fprintf(w, "%s  %s  %s (%d min, %s) [%s]\n", c.ID, c.ScheduledTime, c.Title, c.DurationMinutes, c.CueType, c.Status)
}

func technician(c runsheet.Cue) string {
	switch {
	case c.TechnicianName != "":
		return c.TechnicianName
	case c.TechnicianID != "":
		return c.TechnicianID
	}
	return "-"
}
