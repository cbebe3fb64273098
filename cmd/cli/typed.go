package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// shortcutTypes maps quick-add commands to workout types.
var shortcutTypes = map[string]string{
	"run":  "running",
	"ride": "cycling",
	"swim": "swimming",
	"lift": "strength",
	"yoga": "yoga",
}

// workoutRequest mirrors the server body; nil fields are omitted.
type workoutRequest struct {
	Type     *string  `json:"type,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Date     *string  `json:"date,omitempty"`
	Time     *string  `json:"time,omitempty"`
	Duration *int     `json:"duration,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
	Calories *int     `json:"calories,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

type workoutRow struct {
	ID       int64    `json:"id"`
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	Duration int      `json:"duration"`
	Distance *float64 `json:"distance"`
	Calories *int     `json:"calories"`
}

// ------- validators -------

var (
	reDate  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reClock = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

func validDate(s string) bool  { return reDate.MatchString(s) }
func validClock(s string) bool { return reClock.MatchString(s) }

// parseMinutes accepts bare minutes ("45") or a Go duration ("1h30m").
func parseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, errors.New("duration must be positive")
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q", s)
	}
	n := int(d.Round(time.Minute) / time.Minute)
	if n <= 0 {
		return 0, errors.New("duration must be at least a minute")
	}
	return n, nil
}

// ------- builders -------

type workoutFlags struct {
	fs       *flag.FlagSet
	typ      *string
	name     *string
	date     *string
	clock    *string
	duration *string
	distance *float64
	calories *int
	notes    *string
}

func newWorkoutFlags(cmd string) *workoutFlags {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return &workoutFlags{
		fs:       fs,
		typ:      fs.String("type", "", "running|cycling|strength|swimming|yoga|cardio|other"),
		name:     fs.String("name", "", "workout name"),
		date:     fs.String("date", "", "YYYY-MM-DD (default today)"),
		clock:    fs.String("time", "", "HH:MM (default now)"),
		duration: fs.String("duration", "", "minutes or Go duration, e.g. 45 or 1h10m"),
		distance: fs.Float64("distance", 0, "distance in miles"),
		calories: fs.Int("calories", 0, "calories burned"),
		notes:    fs.String("notes", "", "free text"),
	}
}

// request converts explicitly set flags into a body.
func (w *workoutFlags) request() (workoutRequest, error) {
	var req workoutRequest
	var err error
	w.fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "type":
			req.Type = w.typ
		case "name":
			req.Name = w.name
		case "date":
			if !validDate(*w.date) {
				err = fmt.Errorf("date must be YYYY-MM-DD, got %q", *w.date)
				return
			}
			req.Date = w.date
		case "time":
			if !validClock(*w.clock) {
				err = fmt.Errorf("time must be HH:MM, got %q", *w.clock)
				return
			}
			req.Time = w.clock
		case "duration":
			var n int
			if n, err = parseMinutes(*w.duration); err == nil {
				req.Duration = &n
			}
		case "distance":
			req.Distance = w.distance
		case "calories":
			req.Calories = w.calories
		case "notes":
			req.Notes = w.notes
		}
	})
	return req, err
}

// buildNewWorkout parses add flags, defaulting date and time to now.
func buildNewWorkout(args []string, fixedType string, now time.Time) (workoutRequest, error) {
	wf := newWorkoutFlags("add")
	if err := wf.fs.Parse(args); err != nil {
		return workoutRequest{}, err
	}
	req, err := wf.request()
	if err != nil {
		return workoutRequest{}, err
	}
	if fixedType != "" {
		t := fixedType
		req.Type = &t
	}
	if req.Type == nil || *req.Type == "" {
		return workoutRequest{}, errors.New("need -type")
	}
	if req.Duration == nil {
		return workoutRequest{}, errors.New("need -duration")
	}
	if req.Date == nil {
		d := now.Format("2006-01-02")
		req.Date = &d
	}
	if req.Time == nil {
		c := now.Format("15:04")
		req.Time = &c
	}
	return req, nil
}

// buildPatch parses edit flags; only set flags are sent.
func buildPatch(args []string) (int64, workoutRequest, error) {
	wf := newWorkoutFlags("edit")
	id := wf.fs.Int64("id", 0, "workout id")
	if err := wf.fs.Parse(args); err != nil {
		return 0, workoutRequest{}, err
	}
	if *id <= 0 {
		return 0, workoutRequest{}, errors.New("need -id")
	}
	req, err := wf.request()
	return *id, req, err
}

// profilePatch parses profile-set flags; only set flags are sent.
func profilePatch(args []string) (map[string]any, error) {
	fs := flag.NewFlagSet("profile-set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	age := fs.Int("age", 0, "age")
	height := fs.Float64("height", 0, "height in feet")
	weight := fs.Float64("weight", 0, "weight in lbs")
	goal := fs.Int("goal", 0, "weekly workout goal")
	target := fs.Float64("target", 0, "target weight in lbs")
	primary := fs.String("primary", "", "primary goal")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fields := map[string]struct {
		key string
		val any
	}{
		"first": {"firstName", *first}, "last": {"lastName", *last}, "age": {"age", *age},
		"height": {"height", *height}, "weight": {"weight", *weight}, "goal": {"weeklyWorkoutGoal", *goal},
		"target": {"targetWeight", *target}, "primary": {"primaryGoal", *primary},
	}
	out := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		if m, ok := fields[f.Name]; ok {
			out[m.key] = m.val
		}
	})
	if len(out) == 0 {
		return nil, errors.New("nothing to update")
	}
	return out, nil
}

func printRows(w io.Writer, rows []workoutRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tTYPE\tMIN\tDIST\tKCAL\tNAME")
	for _, r := range rows {
		dist, kcal := "-", "-"
		if r.Distance != nil {
			dist = strconv.FormatFloat(*r.Distance, 'f', 1, 64)
		}
		if r.Calories != nil {
			kcal = strconv.Itoa(*r.Calories)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n", r.ID, r.Date, r.Time, r.Type, r.Duration, dist, kcal, r.Name)
	}
	_ = tw.Flush()
}

// ------- commands -------

// cmdAdd creates a workout; fixedType overrides -type for shortcut commands.
func cmdAdd(ctx context.Context, args []string, fixedType string, authed func() (*apiClient, tokenFile)) {
	req, err := buildNewWorkout(args, fixedType, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	c, _ := authed()
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/workouts", req, &out); err != nil {
		fail(err)
	}
	printJSON(out)
}

// cmdEdit sends a partial update built from the flags given.
func cmdEdit(ctx context.Context, args []string, authed func() (*apiClient, tokenFile)) {
	id, req, err := buildPatch(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	c, _ := authed()
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/api/workouts/"+strconv.FormatInt(id, 10), req, &out); err != nil {
		fail(err)
	}
	printJSON(out)
}
