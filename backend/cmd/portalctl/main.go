package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"

	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/shared"
)

const PortalCtlVersion = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", 0)
}

func main() {
	usage := `Portal control.

The portal url defaults to $PORTAL_URL (http://localhost:8000).
Passwords are read from $PORTAL_PASSWORD or prompted for.

Usage:
    portalctl results --email=<email> [--url=<url>]
    portalctl grades --email=<email> [--course=<course_id>] [--url=<url>]
    portalctl grade <student_id> <result> --email=<email> [--course=<course_id>] [--url=<url>]
    portalctl ungrade <student_id> --email=<email> [--course=<course_id>] [--yes] [--url=<url>]
    portalctl students --email=<email> [--url=<url>]
    portalctl enroll <student_id> <course> --email=<email> [--url=<url>]
    portalctl unenroll <student_id> <course> --email=<email> [--yes] [--url=<url>]
    portalctl notices [--url=<url>]
    portalctl notice-add --email=<email> --title=<title> --description=<description> [--url=<url>]
    portalctl notice-rm <notice_id> --email=<email> [--yes] [--url=<url>]
    portalctl passwd --role=<role> --email=<email> [--url=<url>]

Options:
    -h --help                      Show this screen.
    --version                      Show version.
    --url=<url>                    Portal base url.
    --email=<email>                Login email.
    --course=<course_id>           Course to grade (defaults to your first assigned course).
    --yes                          Do not ask for confirmation.
    --title=<title>                Notice title.
    --description=<description>    Notice description.
    --role=<role>                  One of student, teacher, advisor, admin.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], PortalCtlVersion)
	if err != nil {
		Err.Fatalf("%v", err)
	}

	shared.LoadEnv(".env")
	cfg := shared.LoadClientConfig()
	if url, _ := opts.String("--url"); url != "" {
		cfg.BaseURL = url
	}
	if err := shared.ValidateClientConfig(cfg); err != nil {
		Err.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &cli{
		opts: opts,
		cfg:  cfg,
		base: restclient.New(cfg.BaseURL, restclient.WithTimeout(cfg.RequestTimeout)),
	}

	commands := []struct {
		name string
		run  func(context.Context) error
	}{
		{"results", cli.results},
		{"grades", cli.grades},
		{"grade", cli.grade},
		{"ungrade", cli.ungrade},
		{"students", cli.students},
		{"enroll", cli.enroll},
		{"unenroll", cli.unenroll},
		{"notices", cli.notices},
		{"notice-add", cli.noticeAdd},
		{"notice-rm", cli.noticeRemove},
		{"passwd", cli.passwd},
	}
	for _, c := range commands {
		if selected, _ := opts.Bool(c.name); selected {
			if err := c.run(ctx); err != nil {
				Err.Fatalf("%s: %s", c.name, describe(err))
			}
			return
		}
	}
}
