package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/RivalWatch/internal/ai"
	"github.com/IshaanNene/RivalWatch/internal/parser"
	"github.com/IshaanNene/RivalWatch/internal/report"
	"github.com/IshaanNene/RivalWatch/internal/sites"
	"github.com/IshaanNene/RivalWatch/internal/storage"
	"github.com/IshaanNene/RivalWatch/internal/types"
	"github.com/IshaanNene/RivalWatch/internal/validator"
)

// translateTemperature is the sampling temperature for translation calls.
const translateTemperature = 0.7

type integrateOptions struct {
	dryRun     bool
	requireLLM bool
	skipProbe  bool
}

func (o *integrateOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "render the report but do not send email")
	cmd.Flags().BoolVar(&o.requireLLM, "require-llm", false, "fail when no LLM API key is configured")
	cmd.Flags().BoolVar(&o.skipProbe, "skip-probe", false, "do not probe item links during validation")
}

// integrateCmd creates the "integrate" subcommand.
func integrateCmd() *cobra.Command {
	var opts integrateOptions
	cmd := &cobra.Command{
		Use:   "integrate",
		Short: "Summarize, validate, render and email the artifacts",
		Long: `Load the competitor and industry artifacts, summarize or translate every
item, validate the results, render the HTML report and email it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := a.signalContext()
			defer cancel()

			if err := a.integrate(ctx, opts); err != nil {
				return err
			}
			a.metrics.LogSummary("integrate complete")
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

// integrate runs the report stage over the stored artifacts. Only a missing
// required LLM key, an unreadable artifact directory and a failed report
// write are fatal; email failure is reported and absorbed.
func (a *app) integrate(ctx context.Context, opts integrateOptions) error {
	if opts.requireLLM && !a.cfg.LLM.Enabled() {
		return fmt.Errorf("integrate: %w: set DEEPSEEK_API_KEY or llm.api_key", types.ErrLLMDisabled)
	}
	if err := a.openStorage(ctx); err != nil {
		return err
	}

	competitors, err := a.store.LoadAll()
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}
	industry, err := a.store.LoadIndustry()
	if err != nil {
		return fmt.Errorf("load industry artifact: %w", err)
	}
	a.logger.Info("artifacts loaded", "companies", len(competitors), "modules", len(industry))

	client := ai.NewLLMClient(a.cfg.LLM, a.metrics, a.logger)
	if !client.Enabled() {
		a.logger.Warn("no LLM API key, using fallback text")
	}
	a.rewrite(ctx, client, competitors)
	a.rewrite(ctx, client, industry)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var prober validator.Prober
	if !opts.skipProbe {
		prober = validator.NewHTTPProber(nil, a.cfg.Scraper.UserAgent, a.cfg.Scraper.Timeout)
	}
	v := validator.New(prober, a.window, a.cfg.Content, a.logger)
	competitors, rejectedC := v.ValidateCompetitors(ctx, competitors)
	industry, rejectedI := v.ValidateIndustry(ctx, industry)
	rejected := append(rejectedC, rejectedI...)

	accepted := countItems(competitors) + countItems(industry)
	a.metrics.ItemsAccepted.Add(int64(accepted))
	a.metrics.ItemsRejected.Add(int64(len(rejected)))

	vr := validator.NewReport(a.window.String(), accepted, rejected)
	if path, err := a.store.WriteFile(storage.ValidationFile, vr.WriteJSON); err != nil {
		a.logger.Warn("validation report not written", "error", err)
	} else {
		a.logger.Info("validation report written", "path", path, "rejected", len(rejected))
	}
	a.logger.Debug("validation details", "report", vr.Text())

	var order []string
	for _, s := range a.catalog.ByKind(sites.KindCompetitor) {
		order = append(order, s.Name)
	}
	renderer, err := report.NewRenderer(a.cfg.Storage.OutputDir, a.logger, report.WithOrder(order))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	path, html, err := renderer.RenderFile(competitors, industry, a.window)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if err := printReport(os.Stdout, a.window.String(), accepted, rejected, path); err != nil {
		a.logger.Warn("print rejections failed", "error", err)
	}

	if opts.dryRun {
		a.logger.Info("dry run, email skipped")
		return nil
	}
	msg := &report.Message{Subject: report.Subject(a.window), HTML: string(html)}
	if a.cfg.Email.Attach {
		msg.Attachments = append(msg.Attachments, report.Attachment{
			Filename:    report.FileName(a.window),
			ContentType: "text/html; charset=utf-8",
			Content:     html,
		})
	}
	mailer := report.NewMailer(a.cfg.Email, a.logger)
	switch err := mailer.Send(ctx, msg); {
	case errors.Is(err, report.ErrMailDisabled):
		a.logger.Info("email not configured, report saved only", "path", path)
	case err != nil:
		a.logger.Error("email failed", "error", err)
		fmt.Printf("   Email:     failed (%v)\n", err)
	default:
		fmt.Printf("   Email:     sent to %d recipients\n", len(a.cfg.Email.To))
	}
	return nil
}

// rewrite summarizes or translates every item in place. Without an API key
// the fallbacks apply.
func (a *app) rewrite(ctx context.Context, client *ai.LLMClient, groups map[string][]*types.ContentItem) {
	if a.cfg.LLM.Translate {
		var gen ai.Generator
		if client.Enabled() {
			gen = client.WithTemperature(translateTemperature)
		}
		tr := ai.NewTranslator(gen, a.cfg.Content, a.logger)
		for _, items := range groups {
			tr.TranslateItems(ctx, items)
		}
		return
	}

	var gen ai.Generator
	if client.Enabled() {
		gen = client
	}
	sum := ai.NewSummarizer(gen, a.cfg.Content, a.cfg.LLM.BodyChars, a.logger)
	for _, items := range groups {
		sum.SummarizeItems(ctx, items)
	}
}

// printReport writes the integrate summary and, when any, the rejection table.
func printReport(w io.Writer, window string, accepted int, rejected []validator.Rejection, path string) error {
	fmt.Fprintf(w, "\nReport: %s\n", window)
	fmt.Fprintf(w, "   Accepted:  %d items\n", accepted)
	fmt.Fprintf(w, "   Rejected:  %d items\n", len(rejected))
	fmt.Fprintf(w, "   Output:    %s\n", path)
	if len(rejected) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(rejected))
	for _, r := range rejected {
		rows = append(rows, []string{r.Module, parser.TruncateRunes(r.Title, 40), r.Reason})
	}
	fmt.Fprintln(w)
	return writeTable(w, []string{"MODULE", "TITLE", "REASON"}, rows)
}

func countItems(groups map[string][]*types.ContentItem) int {
	n := 0
	for _, items := range groups {
		n += len(items)
	}
	return n
}
