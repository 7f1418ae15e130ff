package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/user/lrctype/internal/db"
)

func printHistory(ctx context.Context, w io.Writer, runs *db.RunRepo, limit int) error {
	list, err := runs.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tLINES\tERRORS\tDURATION\tSEQUENCE\tTITLE")
	for _, run := range list {
		title := run.Title
		if title == "" {
			title = run.LRCPath
		}
		duration := "-"
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(run.StartedAt),
			run.Status,
			humanize.Comma(int64(run.Fired)),
			humanize.Comma(int64(run.Total)),
			humanize.Comma(int64(run.ErrorCount)),
			duration,
			run.SequenceID,
			title,
		)
	}
	return tw.Flush()
}
