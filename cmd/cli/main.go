// Command fittrack is a CLI client for the FitTrack REST API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      int64     `json:"user_id"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "fittrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fittrack")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (tokenFile, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return tokenFile{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return tokenFile{}, errors.New("no valid token (login required)")
	}
	return tf, nil
}

// tokenExpiry reads exp from the JWT without verifying it; the server does that.
func tokenExpiry(tok string, fallback time.Time) time.Time {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(tok, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return fallback
	}
	return claims.ExpiresAt.Time
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `fittrack CLI
Usage:
  fittrack -addr URL [-cacert file | -insecure] <cmd> [args]

Commands:
  version
  signup     -email <e> -p <password> -first <name> -last <name>   (saves token)
  login      -email <e> -p <password>                              (saves token)
  profile
  profile-set [-first ..] [-last ..] [-age N] [-height ft] [-weight lbs] [-goal N] [-target lbs] [-primary ..]
  list       [-type t] [-from YYYY-MM-DD] [-to YYYY-MM-DD]
  get        -id <n>
  add        -type <t> -duration <45m> [-name ..] [-date ..] [-time ..] [-distance mi] [-calories N] [-notes ..]
  add-json   -file <workout.json | ->
  run|ride|swim|lift|yoga  -duration <45m> [...]                  (add with fixed type)
  edit       -id <n> [any add flag]
  rm         -id <n>
  stats      summary | weekly | monthly [-months N] [-type t] | distribution
  export     [-o file]
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "server URL")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	anon := func() *apiClient {
		c, err := newClient(*addr, *caPath, *insecure, "")
		if err != nil {
			fail(err)
		}
		return c
	}
	authed := func() (*apiClient, tokenFile) {
		tf, err := loadToken()
		if err != nil {
			fail(err)
		}
		c, err := newClient(*addr, *caPath, *insecure, tf.AccessToken)
		if err != nil {
			fail(err)
		}
		return c, tf
	}

	switch cmd {

	case "version":
		fmt.Printf("fittrack %s (%s)\n", version, buildDate)

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		email := fs.String("email", "", "email")
		p := fs.String("p", "", "password")
		first := fs.String("first", "", "first name")
		last := fs.String("last", "", "last name")
		_ = fs.Parse(args)
		if *email == "" || *p == "" || *first == "" || *last == "" {
			fmt.Fprintln(os.Stderr, "need -email -p -first -last")
			os.Exit(1)
		}
		var resp authResponse
		body := map[string]string{"email": *email, "password": *p, "firstName": *first, "lastName": *last}
		if err := anon().do(ctx, http.MethodPost, "/api/auth/signup", body, &resp); err != nil {
			fail(err)
		}
		remember(resp)
		fmt.Println(resp.User.ID)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -email and -p")
			os.Exit(1)
		}
		var resp authResponse
		if err := anon().do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": *email, "password": *p}, &resp); err != nil {
			fail(err)
		}
		remember(resp)
		fmt.Println("ok")

	case "profile":
		c, tf := authed()
		var out json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/api/user/"+strconv.FormatInt(tf.UserID, 10), nil, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "profile-set":
		patch, err := profilePatch(args)
		if err != nil {
			fail(err)
		}
		c, tf := authed()
		var out json.RawMessage
		if err := c.do(ctx, http.MethodPut, "/api/user/"+strconv.FormatInt(tf.UserID, 10), patch, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		typ := fs.String("type", "", "workout type")
		from := fs.String("from", "", "first date (YYYY-MM-DD)")
		to := fs.String("to", "", "last date (YYYY-MM-DD)")
		_ = fs.Parse(args)

		c, tf := authed()
		q := url.Values{}
		for k, v := range map[string]string{"type": *typ, "dateFrom": *from, "dateTo": *to} {
			if v != "" {
				q.Set(k, v)
			}
		}
		path := "/api/workouts/user/" + strconv.FormatInt(tf.UserID, 10)
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
		var rows []workoutRow
		if err := c.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
			fail(err)
		}
		printRows(os.Stdout, rows)

	case "get":
		fs := flag.NewFlagSet("get", flag.ExitOnError)
		id := fs.Int64("id", 0, "workout id")
		_ = fs.Parse(args)
		if *id <= 0 {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		c, _ := authed()
		var out json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/api/workouts/"+strconv.FormatInt(*id, 10), nil, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "add":
		cmdAdd(ctx, args, "", authed)
	case "run", "ride", "swim", "lift", "yoga":
		cmdAdd(ctx, args, shortcutTypes[cmd], authed)

	case "add-json":
		fs := flag.NewFlagSet("add-json", flag.ExitOnError)
		file := fs.String("file", "", "workout JSON file ('-'=stdin)")
		_ = fs.Parse(args)
		if *file == "" {
			fmt.Fprintln(os.Stderr, "need -file")
			os.Exit(1)
		}
		raw, err := readAll(*file)
		if err != nil {
			fail(err)
		}
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			fail(fmt.Errorf("parse %s: %w", *file, err))
		}
		c, _ := authed()
		var out json.RawMessage
		if err := c.do(ctx, http.MethodPost, "/api/workouts", body, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "edit":
		cmdEdit(ctx, args, authed)

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		id := fs.Int64("id", 0, "workout id")
		_ = fs.Parse(args)
		if *id <= 0 {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		c, _ := authed()
		if err := c.do(ctx, http.MethodDelete, "/api/workouts/"+strconv.FormatInt(*id, 10), nil, nil); err != nil {
			fail(err)
		}
		fmt.Println("deleted")

	case "stats":
		if len(args) < 1 {
			usage()
		}
		path, err := statsPath(args[0], args[1:])
		if err != nil {
			fail(err)
		}
		c, _ := authed()
		var out json.RawMessage
		if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		o := fs.String("o", "", "output file (default stdout)")
		_ = fs.Parse(args)
		c, tf := authed()
		var out json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/api/user/"+strconv.FormatInt(tf.UserID, 10)+"/export", nil, &out); err != nil {
			fail(err)
		}
		if *o == "" {
			printJSON(out)
			break
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		if err := os.WriteFile(*o, b, 0o600); err != nil {
			fail(err)
		}
		fmt.Println(*o)

	default:
		usage()
	}
}

// ---- helpers ----

type authResponse struct {
	User struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func remember(resp authResponse) {
	exp := resp.ExpiresAt
	if exp.IsZero() {
		exp = tokenExpiry(resp.AccessToken, time.Now().Add(15*time.Minute))
	}
	if err := saveToken(tokenFile{AccessToken: resp.AccessToken, ExpiresAt: exp, UserID: resp.User.ID}); err != nil {
		fail(err)
	}
}

func statsPath(kind string, args []string) (string, error) {
	switch kind {
	case "summary", "weekly", "distribution":
		return "/api/stats/" + kind, nil
	case "monthly":
		fs := flag.NewFlagSet("monthly", flag.ContinueOnError)
		months := fs.Int("months", 0, "number of months (default 6)")
		typ := fs.String("type", "", "workout type")
		if err := fs.Parse(args); err != nil {
			return "", err
		}
		q := url.Values{}
		if *months > 0 {
			q.Set("months", strconv.Itoa(*months))
		}
		if *typ != "" {
			q.Set("type", *typ)
		}
		if len(q) == 0 {
			return "/api/stats/monthly", nil
		}
		return "/api/stats/monthly?" + q.Encode(), nil
	default:
		return "", fmt.Errorf("unknown stats %q", kind)
	}
}

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "api error: status=%d msg=%s\n", ae.Status, ae.Message)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
	os.Exit(1)
}
