package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/msgsearch/pkg/cache"
	"github.com/rubiojr/msgsearch/pkg/config"
	"github.com/rubiojr/msgsearch/pkg/core"
	"github.com/rubiojr/msgsearch/pkg/search"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	messageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	authorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the cached messages",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query (defaults to the first argument)",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Result page, starting at 1",
				Value: search.DefaultPage,
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Results per page",
				Value: search.DefaultPageSize,
			},
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Fetch the dataset from upstream before searching",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.String("query")
			if query == "" {
				query = c.Args().First()
			}
			return searchMessages(ctx, c.String("config"), query, c.Int("page"), c.Int("page-size"), c.Bool("refresh"))
		},
	}
}

// searchMessages runs one search against the fallback dataset, or a fresh
// upstream copy when refresh is set.
func searchMessages(ctx context.Context, configPath, query string, page, pageSize int, refresh bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	if refresh {
		if _, err := a.orchestrator.Refresh(ctx); err != nil {
			return fmt.Errorf("refreshing dataset: %w", err)
		}
	}

	result, err := a.engine.Search(query, page, pageSize)
	if errors.Is(err, search.ErrInvalidQuery) {
		return errors.New("a query is required, pass it as an argument or with --query")
	}
	if err != nil {
		return err
	}

	fmt.Print(renderPage(result, a.cache.Stats()))
	return nil
}

// renderPage formats a result page for the terminal.
func renderPage(p *core.Page, stats cache.Stats) string {
	var out strings.Builder

	header := fmt.Sprintf("%s: %d matches", cases.Title(language.English).String(p.Query), p.Total)
	out.WriteString(titleStyle.Render(header))
	out.WriteString("\n")

	if len(p.Items) == 0 {
		out.WriteString(noDataStyle.Render("No messages on this page"))
		out.WriteString("\n")
	}

	first := (p.Page-1)*p.PageSize + 1
	for i, m := range p.Items {
		var body strings.Builder
		body.WriteString(authorStyle.Render(fmt.Sprintf("#%d %s", first+i, m.UserName)))
		body.WriteString("\n")
		body.WriteString(m.Message)
		body.WriteString("\n")
		body.WriteString(metaStyle.Render(fmt.Sprintf("%s  id=%s", m.Timestamp, m.ID)))
		out.WriteString(messageStyle.Render(body.String()))
		out.WriteString("\n")
	}

	footer := fmt.Sprintf("page %d, %d per page, %d messages from %s", p.Page, p.PageSize, stats.Count, stats.Source)
	out.WriteString(metaStyle.Render(footer))
	out.WriteString("\n")
	return out.String()
}
