package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netsweep/netsweep/pkg/export"
	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/mailer"
	"github.com/netsweep/netsweep/pkg/poll"
	"github.com/netsweep/netsweep/pkg/report"
	"github.com/netsweep/netsweep/pkg/upload"
	"github.com/netsweep/netsweep/pkg/util"
)

var (
	exportRoles       string
	exportOnly        string
	exportConcurrency int
	exportMail        bool
	exportUpload      bool
	exportSubdir      string
	exportKeep        bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Capture router config exports and hash logs, zipped for delivery",
	Long: `Fetch "/export" from every selected router along with its rotated hash
logs, bundle the day's captures into one zip, and optionally upload or mail
it.

  netsweep -f sites.csv export -r export --upload --mail`,
	RunE: func(cmd *cobra.Command, args []string) error {
		selector := inventory.Selector{Include: util.SplitCommaSeparated(exportRoles)}
		selected := selector.Apply(devices)
		if exportOnly != "" {
			allow := map[string]bool{}
			for _, s := range util.SplitCommaSeparated(exportOnly) {
				allow[s] = true
			}
			var kept []inventory.Device
			for _, d := range selected {
				if allow[d.Site] {
					kept = append(kept, d)
				}
			}
			selected = kept
		}
		if len(selected) == 0 {
			return fmt.Errorf("no enabled devices match the selection: %w", util.ErrEmptyInventory)
		}

		creds := promptingCreds()
		today := time.Now()
		outDir := fmt.Sprintf("%s_daily_exports", today.Format("2006-01-02"))
		exporter := &export.Exporter{Dir: outDir, Date: today, Creds: creds}

		sched := &poll.Scheduler{
			Concurrency: pickInt(exportConcurrency, cfg.Concurrency),
			Timeout:     cfg.DeviceTimeout.Std(),
			Retries:     cfg.Retries,
		}
		if !jsonOutput {
			sched.OnProgress = poll.NewProgress(os.Stderr, "routers").Update
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		util.Infof("exporting %d router(s), %d at a time", len(selected), sched.Concurrency)
		agg := sched.Run(ctx, selected, func(ctx context.Context, dev inventory.Device) (interface{}, error) {
			return exporter.ExportOne(ctx, dev)
		})

		summary := report.Summarize(agg)
		fmt.Println(summary)
		if agg.Succeeded() == 0 {
			return fmt.Errorf("all %d router(s) failed", len(selected))
		}

		zipPath, err := export.ZipDir(outDir)
		if err != nil {
			return err
		}
		util.Infof("bundled %s", zipPath)

		if exportUpload {
			up := upload.New(cfg.FileServer, creds)
			remote, err := up.Put(ctx, zipPath, exportSubdir)
			if err != nil {
				util.Errorf("upload: %v", err)
			} else {
				util.Infof("uploaded %s", remote)
			}
		}

		if exportMail {
			if err := mailExport(creds, today, summary, zipPath); err != nil {
				util.Errorf("mailing bundle: %v", err)
			}
		}

		if !exportKeep {
			if err := os.RemoveAll(outDir); err != nil {
				util.Warnf("cleanup %s: %v", outDir, err)
			}
			if err := os.Remove(zipPath); err != nil {
				util.Warnf("cleanup %s: %v", zipPath, err)
			}
		}
		return nil
	},
}

func mailExport(creds func(string) (string, error), day time.Time, summary, zipPath string) error {
	pass, err := creds(cfg.Mail.PassEnv)
	if err != nil {
		return err
	}
	m := mailer.New(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.From, pass)
	subject := fmt.Sprintf("%s daily exports", day.Format("2006-01-02"))
	body := fmt.Sprintf("Attached firewall exports for %s.\n\n%s", day.Format("2006-01-02"), summary)
	return m.SendFile(cfg.Mail.Recipients, subject, body, zipPath)
}

func init() {
	exportCmd.Flags().StringVarP(&exportRoles, "roles", "r", "export", "Only routers carrying any of these roles")
	exportCmd.Flags().StringVar(&exportOnly, "only", "", "Restrict to these site names (comma-separated)")
	exportCmd.Flags().IntVar(&exportConcurrency, "concurrency", 0, "Routers in flight at once (default from config)")
	exportCmd.Flags().BoolVar(&exportMail, "mail", false, "Mail the zip to the configured recipients")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "Upload the zip to the file server")
	exportCmd.Flags().StringVar(&exportSubdir, "subdir", "daily-exports", "File server subdirectory for the zip")
	exportCmd.Flags().BoolVar(&exportKeep, "keep", false, "Keep the local capture directory and zip")
}
