package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kbtriage/backend/internal/app"
	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/models"
)

func newCLIApp(a *app.App) *cli.App {
	c := &cli.App{
		Name:    "triagectl",
		Usage:   "Triage issue reports, file tickets and publish knowledge articles",
		Version: Version,
		Commands: []*cli.Command{
			respondCmd(a),
			ticketCmd(a),
			publishCmd(a),
			probeCmd(a),
		},
	}
	c.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return c
}

// respondCmd asks the assistant for a reply.
func respondCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "respond",
		Usage:     "Get an assistant reply for text (args or stdin)",
		ArgsUsage: "[text]",
		Action: func(c *cli.Context) error {
			text, err := inputText(c)
			if err != nil {
				return outputError(err)
			}
			reply, err := a.Responder.Respond(c.Context, text)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]string{
				"text":   reply.Text,
				"source": reply.Source,
				"notice": reply.Notice(),
			})
		},
	}
}

func ticketCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "ticket",
		Usage:     "Create a tracked issue from triage text (args or stdin)",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project key"},
		},
		Action: func(c *cli.Context) error {
			text, err := inputText(c)
			if err != nil {
				return outputError(err)
			}
			res := a.Tickets.Submit(c.Context, text, c.String("project"))
			if err := outputJSON(c.App.Writer, res); err != nil {
				return err
			}
			if !res.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func publishCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish a knowledge article for a ticket (triage text from args or stdin)",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Required: true, Usage: "Ticket key"},
			&cli.StringFlag{Name: "id", Usage: "Ticket id"},
			&cli.StringFlag{Name: "url", Usage: "Ticket URL (defaults to <site>/browse/<key>)"},
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project key"},
		},
		Action: func(c *cli.Context) error {
			text, err := inputText(c)
			if err != nil {
				return outputError(err)
			}
			ref := models.TicketRef{Key: c.String("key"), ID: c.String("id"), URL: c.String("url")}
			if ref.URL == "" {
				ref.URL = strings.TrimRight(a.Config.SiteURL, "/") + "/browse/" + ref.Key
			}
			res := a.Publisher.Publish(c.Context, ref, text, c.String("project"))
			if err := outputJSON(c.App.Writer, res); err != nil {
				return err
			}
			if !res.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func probeCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Check content platform connectivity",
		Action: func(c *cli.Context) error {
			rep := a.Connectivity.Test(c.Context)
			if err := outputJSON(c.App.Writer, rep); err != nil {
				return err
			}
			if !rep.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// inputText joins positional args, or reads piped stdin when there are none.
func inputText(c *cli.Context) (string, error) {
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	if !stdinHasData() {
		return "", apperr.NewInvalidRequest("text must be given as arguments or piped via stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", apperr.NewInternal(err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", apperr.NewInvalidRequest("text is required")
	}
	return text, nil
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputError(err error) error {
	if e, ok := apperr.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", e.Code, e.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
