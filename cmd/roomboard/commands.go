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

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/roomboard/internal/dto"
	"github.com/noah-isme/roomboard/internal/models"
	"github.com/noah-isme/roomboard/internal/service"
	"github.com/noah-isme/roomboard/pkg/config"
	"github.com/noah-isme/roomboard/pkg/export"
	"github.com/noah-isme/roomboard/pkg/logger"
)

// errCheckFailed makes `check` exit non-zero once its report is printed.
var errCheckFailed = errors.New("board file has errors or conflicts")

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "roomboard",
		Usage:     "Validate and export room/day scheduling boards offline.",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}, Usage: "zap log level"},
		},
		Commands: []*cli.Command{
			checkCommand(),
			exportCommand(),
			tokenCommand(),
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Replay a board file and report import errors, conflicts and occupancy.",
		ArgsUsage: "<board.yaml>",
		Action: func(c *cli.Context) error {
			board, reports, err := replay(c)
			if err != nil {
				return err
			}
			out := c.App.Writer

			failed := false
			for _, named := range reports {
				fmt.Fprintf(out, "%-15s %s\n", named.name, named.report.Summary())
				for _, rowErr := range named.report.Errors {
					fmt.Fprintf(out, "  error   %s\n", rowErr)
				}
				for _, warning := range named.report.Warnings {
					fmt.Fprintf(out, "  warning %s\n", warning)
				}
				failed = failed || named.report.Failed()
			}

			conflicts := board.ConflictReport(c.Context)
			if len(conflicts) > 0 {
				failed = true
				fmt.Fprintln(out, "\nInstructor conflicts:")
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "EVENT\tCOURSE\tINSTRUCTOR\tDAYS\tCONFLICT DAYS")
				for _, row := range conflicts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d\t%v\n", row.EventID, row.CourseID, row.Instructor, row.ScheduledDays[0], row.ScheduledDays[1], row.ConflictDays)
				}
				_ = tw.Flush()
			}

			fmt.Fprintln(out, "\nOccupancy:")
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EVENT\tROOMS\tDAYS\tFILLED\tFILL RATE\tFULL")
			for _, event := range board.Events(c.Context) {
				report, _, err := board.Occupancy(c.Context, event.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.0f%%\t%t\n", report.EventID, report.RoomCount, report.TotalDays, report.FilledDays, report.FillRate*100, report.FullyBooked)
			}
			_ = tw.Flush()

			if failed {
				return errCheckFailed
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Replay a board file and render its schedule or conflict report.",
		ArgsUsage: "<board.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: service.ExportFormatCSV, Usage: "csv, pdf or ics"},
			&cli.StringFlag{Name: "kind", Value: service.ExportKindPlacements, Usage: "placements or conflicts"},
			&cli.StringFlag{Name: "event", Usage: "limit to one event id"},
			&cli.StringFlag{Name: "out", Usage: "output directory; stdout when empty"},
			&cli.BoolFlag{Name: "excel", Usage: "prefix csv output with a UTF-8 byte order mark"},
		},
		Action: func(c *cli.Context) error {
			board, _, err := replay(c)
			if err != nil {
				return err
			}
			csvRenderer := export.NewCSVExporter()
			if c.Bool("excel") {
				csvRenderer = csvRenderer.WithBOM()
			}
			exports := service.NewExportService(board, nil, nil, cliLogger(c), csvRenderer, nil, nil)
			result, err := exports.Export(c.Context, dto.ExportQuery{
				Kind:    c.String("kind"),
				Format:  c.String("format"),
				EventID: c.String("event"),
			})
			if err != nil {
				return err
			}

			dir := c.String("out")
			if dir == "" {
				_, err = c.App.Writer.Write(result.Body)
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			path := filepath.Join(dir, result.Filename)
			if err := os.WriteFile(path, result.Body, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintln(c.App.Writer, path)
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint an API access token signed with JWT_SECRET.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "subject user id"},
			&cli.StringFlag{Name: "role", Value: string(models.RoleViewer), Usage: "ADMIN, EDITOR or VIEWER"},
			&cli.StringFlag{Name: "email", Usage: "optional email claim"},
			&cli.DurationFlag{Name: "ttl", Value: 12 * time.Hour, Usage: "token lifetime"},
			&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Usage: "signing secret; defaults to the API config"},
		},
		Action: func(c *cli.Context) error {
			secret := c.String("secret")
			if secret == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				secret = cfg.JWT.Secret
			}
			auth := service.NewAuthService(nil, cliLogger(c), service.AuthConfig{AccessTokenSecret: secret})
			token, expires, err := auth.IssueToken(service.IssueTokenRequest{
				UserID: c.String("user"),
				Email:  c.String("email"),
				Role:   models.UserRole(c.String("role")),
				TTL:    c.Duration("ttl"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			fmt.Fprintf(c.App.ErrWriter, "expires %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

type namedReport struct {
	name   string
	report models.ImportReport
}

// replay loads the board file named by the first argument into a fresh in-memory
// board in dependency order.
func replay(c *cli.Context) (*service.BoardService, []namedReport, error) {
	path := c.Args().First()
	if path == "" {
		return nil, nil, errors.New("missing board file argument")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read board file: %w", err)
	}
	var file dto.BoardFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("parse board file %s: %w", path, err)
	}

	board := service.NewBoardService(nil, nil, nil, validator.New(), cliLogger(c), service.BoardServiceConfig{})
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	steps := []struct {
		name string
		run  func() (models.ImportReport, error)
	}{
		{"events", func() (models.ImportReport, error) {
			return board.LoadEvents(ctx, dto.LoadEventsRequest{Events: nonNil(file.Events)})
		}},
		{"courses", func() (models.ImportReport, error) {
			return board.LoadCourses(ctx, dto.LoadCoursesRequest{Courses: nonNil(file.Courses)})
		}},
		{"unavailability", func() (models.ImportReport, error) {
			return board.LoadUnavailability(ctx, dto.LoadUnavailabilityRequest{Entries: nonNil(file.Unavailability)})
		}},
		{"placements", func() (models.ImportReport, error) {
			return board.ImportPlacements(ctx, dto.ImportPlacementsRequest{Rows: nonNil(file.Placements)})
		}},
	}
	reports := make([]namedReport, 0, len(steps))
	for _, step := range steps {
		report, err := step.run()
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", step.name, err)
		}
		reports = append(reports, namedReport{name: step.name, report: report})
	}
	return board, reports, nil
}

// nonNil keeps `required` validation satisfied for sections the file omits.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func cliLogger(c *cli.Context) *zap.Logger {
	l, err := logger.New(&config.Config{
		Env: config.EnvDevelopment,
		Log: config.LogConfig{Level: c.String("log-level"), Format: "console"},
	})
	if err != nil {
		return zap.NewNop()
	}
	return l
}
