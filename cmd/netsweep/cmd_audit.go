package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netsweep/netsweep/pkg/cli"
	"github.com/netsweep/netsweep/pkg/config"
	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/mailer"
	"github.com/netsweep/netsweep/pkg/poll"
	"github.com/netsweep/netsweep/pkg/report"
	"github.com/netsweep/netsweep/pkg/system"
	"github.com/netsweep/netsweep/pkg/upload"
	"github.com/netsweep/netsweep/pkg/util"
)

var (
	auditRoles        string
	auditExcludeRoles string
	auditSystems      string
	auditOutDir       string
	auditConcurrency  int
	auditRetries      int
	auditTimeout      time.Duration
	auditMail         bool
	auditUpload       bool
	auditSubdir       string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Poll every selected site and write subscriber speed tables",
	Long: `Poll the selected sites concurrently and write one CSV per site plus a
run summary.

Role selectors come from the inventory's roles column:

  netsweep -f sites.csv audit -r firewall
  netsweep -f sites.csv audit -r firewall --exclude-roles export
  netsweep -f sites.csv audit --systems ettp,gpon --mail`,
	RunE: func(cmd *cobra.Command, args []string) error {
		selector := inventory.Selector{
			Include: util.SplitCommaSeparated(auditRoles),
			Exclude: util.SplitCommaSeparated(auditExcludeRoles),
			Systems: util.SplitCommaSeparated(auditSystems),
		}
		selected := selector.Apply(devices)
		if len(selected) == 0 {
			return fmt.Errorf("no enabled devices match the selection: %w", util.ErrEmptyInventory)
		}

		var exclude *regexp.Regexp
		if cfg.NeighborExclude != "" {
			var err error
			if exclude, err = regexp.Compile(cfg.NeighborExclude); err != nil {
				return fmt.Errorf("neighbor_exclude: %w", err)
			}
		}

		creds := promptingCreds()
		opts := system.Options{
			Creds:           creds,
			ModemUserEnv:    cfg.ModemUserEnv,
			ModemPassEnv:    cfg.ModemPassEnv,
			NeighborExclude: exclude,
		}

		sched := &poll.Scheduler{
			Concurrency: pickInt(auditConcurrency, cfg.Concurrency),
			Timeout:     pickDuration(auditTimeout, cfg.DeviceTimeout.Std()),
			Retries:     pickInt(auditRetries, cfg.Retries),
		}
		if !jsonOutput {
			sched.OnProgress = poll.NewProgress(os.Stderr, "sites").Update
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		util.Infof("polling %d site(s), %d at a time", len(selected), sched.Concurrency)
		agg := sched.Run(ctx, selected, func(ctx context.Context, dev inventory.Device) (interface{}, error) {
			sys, err := system.New(dev, opts)
			if err != nil {
				return nil, err
			}
			return sys.Collect(ctx)
		})

		writer := &report.Writer{Dir: auditOutDir}
		paths, err := writer.WriteRun(agg)
		if err != nil {
			return fmt.Errorf("writing reports: %w", err)
		}
		summaryPath := paths[len(paths)-1]

		if !jsonOutput {
			table := cli.NewTable("SITE", "SYSTEM", "OUTCOME", "ATTEMPTS", "DURATION")
			for _, r := range agg.Results {
				table.Row(r.Device.Identity(), r.Device.System,
					cli.Status(r.Outcome.String()),
					fmt.Sprintf("%d", r.Attempts),
					r.Duration.Round(time.Millisecond).String())
			}
			table.Flush()
		}

		summary := report.Summarize(agg)
		fmt.Println(summary)

		if auditUpload {
			up := upload.New(cfg.FileServer, creds)
			for _, p := range paths {
				remote, err := up.Put(ctx, p, auditSubdir)
				if err != nil {
					util.Errorf("upload %s: %v", p, err)
					continue
				}
				util.Infof("uploaded %s", remote)
			}
		}

		if auditMail {
			if err := mailAudit(creds, summary, summaryPath); err != nil {
				util.Errorf("mailing summary: %v", err)
			}
		}

		if agg.Succeeded() == 0 {
			return fmt.Errorf("all %d site(s) failed", len(selected))
		}
		return nil
	},
}

func mailAudit(creds config.CredentialSource, summary, attachment string) error {
	pass, err := creds(cfg.Mail.PassEnv)
	if err != nil {
		return err
	}
	m := mailer.New(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.From, pass)
	subject := fmt.Sprintf("%s speed audit", time.Now().Format("2006-01-02"))
	return m.SendFile(cfg.Mail.Recipients, subject, summary, attachment)
}

func pickInt(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}

func pickDuration(flag, fallback time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	return fallback
}

func init() {
	auditCmd.Flags().StringVarP(&auditRoles, "roles", "r", "", "Only sites carrying any of these roles (comma-separated)")
	auditCmd.Flags().StringVar(&auditExcludeRoles, "exclude-roles", "", "Skip sites carrying any of these roles")
	auditCmd.Flags().StringVar(&auditSystems, "systems", "", "Only these system types (ettp,gpon,dsl,cmts)")
	auditCmd.Flags().StringVarP(&auditOutDir, "out", "o", "reports", "Report output directory")
	auditCmd.Flags().IntVar(&auditConcurrency, "concurrency", 0, "Sites in flight at once (default from config)")
	auditCmd.Flags().IntVar(&auditRetries, "retries", 0, "Extra attempts on connect failure or timeout (default from config)")
	auditCmd.Flags().DurationVar(&auditTimeout, "timeout", 0, "Per-site attempt deadline (default from config)")
	auditCmd.Flags().BoolVar(&auditMail, "mail", false, "Mail the run summary to the configured recipients")
	auditCmd.Flags().BoolVar(&auditUpload, "upload", false, "Upload reports to the file server")
	auditCmd.Flags().StringVar(&auditSubdir, "subdir", "speed-audits", "File server subdirectory for uploads")
}
