package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"coursecal/internal/config"
	"coursecal/internal/dataset"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/timetable"
)

// runOnce exports one semester to files and returns.
func runOnce(ctx context.Context, conf *config.Config, flags flagConfig) error {
	sem, ok := conf.Semester(flags.semester)
	if !ok {
		return fmt.Errorf("unknown semester %q", flags.semester)
	}

	anchor, err := onceAnchor(flags.anchor, sem)
	if err != nil {
		return err
	}

	ds, err := dataset.NewFetcher(conf.CacheDir).Load(ctx, dataset.Source{ID: sem.ID, Path: sem.Path, URL: sem.URL})
	if err != nil {
		return err
	}

	events, err := ics.Expand(anchor, ds.Periods, ds.Courses)
	if err != nil {
		return err
	}
	if err := writeOutput(flags.out, func(w io.Writer) error {
		return ics.WriteTo(w, events, conf.CalendarName, conf.Timezone)
	}); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	appLog.Info("calendar written", "semester", sem.ID, "out", flags.out, "event_count", len(events))

	if flags.xlsx == "" {
		return nil
	}
	g, err := timetable.Build(ds.Periods, ds.Courses)
	if err != nil {
		return err
	}
	buf, err := timetable.Workbook(g, sem.Name)
	if err != nil {
		return err
	}
	if err := writeOutput(flags.xlsx, func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	}); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	appLog.Info("workbook written", "semester", sem.ID, "out", flags.xlsx, "rows", len(g.Rows))
	return nil
}

func onceAnchor(raw string, sem config.SemesterConfig) (time.Time, error) {
	if raw != "" {
		t, err := time.ParseInLocation(config.AnchorLayout, raw, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("-anchor %q: %w", raw, err)
		}
		return t, nil
	}
	t, ok, err := sem.Anchor()
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, errors.New("no anchor: pass -anchor or set anchor_monday for the semester")
	}
	return t, nil
}

// writeOutput writes atomically to path via a temp file, or to stdout for "-".
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".coursecal-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// runInspect prints a summary of an exported calendar file.
func runInspect(w io.Writer, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	exp, err := ics.ParseExport(body)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "calendar: %s (%s)\nevents:   %d\n\n", exp.Name, exp.Timezone, len(exp.Events))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WEEK\tDATE\tDAY\tTIME\tTITLE\tLOCATION")
	for _, ev := range exp.Events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s-%s\t%s\t%s\n",
			ev.Week,
			ev.Date.Format(config.AnchorLayout),
			ev.Weekday,
			ev.Start,
			ev.End,
			ev.Title,
			ev.Location,
		)
	}
	return tw.Flush()
}
