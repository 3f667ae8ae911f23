package cli

import (
	"fmt"
	"os"

	"empty-jar/internal/export"
	"empty-jar/internal/ledger"

	"github.com/spf13/cobra"
)

func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send changes queued while offline",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if a.session.Identity() == nil {
				a.printf("guest profile, nothing to sync\n")
				return nil
			}
			report, err := a.session.Sync(cmd.Context())
			if err != nil {
				return err
			}
			if a.opts.JSON {
				return a.printJSON(syncSummary(report))
			}
			a.printf("applied %d, already on server %d, failed %d, dead-lettered %d, remaining %d\n",
				report.Applied, report.Benign, report.Failed, report.DeadLettered, report.Remaining)
			if report.Interrupted != nil {
				a.printf("stopped early: %v\n", report.Interrupted)
			}
			return nil
		}),
	}
}

type syncJSON struct {
	Applied      int    `json:"applied"`
	Benign       int    `json:"benign"`
	Failed       int    `json:"failed"`
	DeadLettered int    `json:"dead_lettered"`
	Remaining    int    `json:"remaining"`
	Interrupted  string `json:"interrupted,omitempty"`
}

func syncSummary(r ledger.DrainReport) syncJSON {
	out := syncJSON{
		Applied:      r.Applied,
		Benign:       r.Benign,
		Failed:       r.Failed,
		DeadLettered: r.DeadLettered,
		Remaining:    r.Remaining,
	}
	if r.Interrupted != nil {
		out.Interrupted = r.Interrupted.Error()
	}
	return out
}

type statusJSON struct {
	Backend      string `json:"backend"`
	Account      string `json:"account,omitempty"`
	Email        string `json:"email,omitempty"`
	CurrentWeek  string `json:"current_week"`
	HasNote      bool   `json:"has_note"`
	Notes        int    `json:"notes"`
	Pending      int    `json:"pending"`
	DeadLetters  int    `json:"dead_letters"`
	GuestPending int    `json:"guest_notes_to_migrate"`
}

func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active profile, this week and the sync queue",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			notes := a.session.Notes()
			st := statusJSON{
				Backend:      string(a.session.Kind()),
				CurrentWeek:  notes.CurrentWeekKey(),
				Notes:        notes.Count(),
				GuestPending: len(a.session.MigrationPrompt()),
			}
			st.HasNote = notes.HasForWeek(st.CurrentWeek)

			if id := a.session.Identity(); id != nil {
				st.Account, st.Email = id.AccountID, id.Email
				n, err := a.session.Queue().Len(ctx, id.AccountID)
				if err != nil {
					return err
				}
				st.Pending = n
			}
			dead, err := a.session.Queue().DeadLetters(ctx)
			if err != nil {
				return err
			}
			st.DeadLetters = len(dead)

			if a.opts.JSON {
				return a.printJSON(st)
			}
			a.printf("backend:      %s\n", st.Backend)
			if st.Account != "" {
				a.printf("account:      %s (%s)\n", st.Email, st.Account)
			}
			a.printf("this week:    %s", st.CurrentWeek)
			if st.HasNote {
				a.printf(" (written)\n")
			} else {
				a.printf(" (empty)\n")
			}
			a.printf("notes:        %d\n", st.Notes)
			a.printf("pending sync: %d\n", st.Pending)
			if st.DeadLetters > 0 {
				a.printf("dead letters: %d\n", st.DeadLetters)
			}
			if st.GuestPending > 0 {
				a.printf("%d guest notes can be added to this account: jar migrate accept\n", st.GuestPending)
			}
			return nil
		}),
	}
}

func NewExportCommand(opts *RootOptions) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every note as JSON or Markdown",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return export.Write(a.out, f, a.session.Notes().Sorted())
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := export.Write(file, f, a.session.Notes().Sorted()); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			a.printf("exported %d notes to %s\n", a.session.Notes().Count(), out)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "json or markdown")
	cmd.Flags().StringVarP(&out, "output", "o", "", "file to write, stdout by default")
	return cmd
}
