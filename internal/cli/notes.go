package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"empty-jar/internal/domain"
	"empty-jar/internal/ledger"
	"empty-jar/internal/weekkey"

	"github.com/spf13/cobra"
)

type noteFlags struct {
	title    string
	body     string
	bodyFile string
	mood     int
	moment   string
	tags     []string
}

func (f *noteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "optional title")
	cmd.Flags().StringVarP(&f.body, "body", "b", "", "note text")
	cmd.Flags().StringVar(&f.bodyFile, "body-file", "", "read the note text from a file, - for stdin")
	cmd.Flags().IntVarP(&f.mood, "mood", "m", 0, "mood from 1 (rough) to 5 (great)")
	cmd.Flags().StringVar(&f.moment, "moment", string(domain.MomentOther), "moment type")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "tag, repeatable")
}

func (f *noteFlags) readBody(in io.Reader) (string, error) {
	switch f.bodyFile {
	case "":
		return f.body, nil
	case "-":
		raw, err := io.ReadAll(in)
		return string(raw), err
	}
	raw, err := os.ReadFile(f.bodyFile)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(raw), nil
}

// resolveWeek accepts a week key or "current". An empty argument list means
// the current week.
func resolveWeek(a *app, args []string) (string, error) {
	if len(args) == 0 || args[0] == "current" {
		return a.session.Notes().CurrentWeekKey(), nil
	}
	if err := weekkey.Validate(args[0]); err != nil {
		return "", err
	}
	return args[0], nil
}

func NewAddCommand(opts *RootOptions) *cobra.Command {
	var flags noteFlags

	cmd := &cobra.Command{
		Use:   "add [week]",
		Short: "Add the note for a week, the current one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			week, err := resolveWeek(a, args)
			if err != nil {
				return err
			}
			body, err := flags.readBody(cmd.InOrStdin())
			if err != nil {
				return err
			}
			res, err := a.session.Notes().Add(cmd.Context(), domain.CreateNoteRequest{
				WeekKey:    week,
				Title:      flags.title,
				Body:       body,
				Mood:       flags.mood,
				MomentType: domain.MomentType(flags.moment),
				Tags:       flags.tags,
			})
			return a.reportResult("note for "+week, res, err)
		}),
	}
	flags.register(cmd)
	return cmd
}

func NewEditCommand(opts *RootOptions) *cobra.Command {
	var flags noteFlags

	cmd := &cobra.Command{
		Use:   "edit [week]",
		Short: "Edit the note for the current week",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			week, err := resolveWeek(a, args)
			if err != nil {
				return err
			}
			note, ok := a.session.Notes().GetForWeek(week)
			if !ok {
				return fmt.Errorf("no note for %s: %w", week, ledger.ErrNoteNotFound)
			}

			var patch domain.UpdateNoteRequest
			changed := cmd.Flags().Changed
			if changed("title") {
				patch.Title = &flags.title
			}
			if changed("body") || changed("body-file") {
				body, err := flags.readBody(cmd.InOrStdin())
				if err != nil {
					return err
				}
				patch.Body = &body
			}
			if changed("mood") {
				patch.Mood = &flags.mood
			}
			if changed("moment") {
				m := domain.MomentType(flags.moment)
				patch.MomentType = &m
			}
			if changed("tag") {
				patch.Tags = &flags.tags
			}

			res, err := a.session.Notes().Update(cmd.Context(), note.ID, patch)
			return a.reportResult("note for "+week, res, err)
		}),
	}
	flags.register(cmd)
	return cmd
}

func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <week>",
		Short: "Delete the note for a week",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			week, err := resolveWeek(a, args)
			if err != nil {
				return err
			}
			note, ok := a.session.Notes().GetForWeek(week)
			if !ok {
				return fmt.Errorf("no note for %s: %w", week, ledger.ErrNoteNotFound)
			}
			res, err := a.session.Notes().Delete(cmd.Context(), note.ID)
			return a.reportResult("deletion of "+week, res, err)
		}),
	}
}

func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [week]",
		Short: "Print the note for a week",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			week, err := resolveWeek(a, args)
			if err != nil {
				return err
			}
			note, ok := a.session.Notes().GetForWeek(week)
			if !ok {
				return fmt.Errorf("no note for %s: %w", week, ledger.ErrNoteNotFound)
			}
			if a.opts.JSON {
				return a.printJSON(note)
			}
			a.printNote(note, true)
			return nil
		}),
	}
}

func (a *app) printNote(n domain.Note, withBody bool) {
	title := n.Title
	if title == "" {
		title = n.MomentType.Label()
	}
	a.printf("%s  %-5s  %s", n.WeekKey, domain.MoodLabel(n.Mood), title)
	if len(n.Tags) > 0 {
		a.printf("  #%s", strings.Join(n.Tags, " #"))
	}
	if n.IsBackfill {
		a.printf("  (backfill)")
	}
	if ledger.IsLocalID(n.ID) {
		a.printf("  (not synced)")
	}
	a.printf("\n")
	if withBody {
		a.printf("\n%s\n", strings.TrimRight(n.Body, "\n"))
	}
}

func NewListCommand(opts *RootOptions) *cobra.Command {
	var (
		filter ledger.NoteFilter
		moment string
		reveal bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes in week order",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			filter.MomentType = domain.MomentType(moment)
			notes := a.session.Notes().Filter(filter)
			if a.opts.JSON {
				return a.printJSON(notes)
			}
			if len(notes) == 0 {
				a.printf("no notes\n")
				return nil
			}
			showBody := reveal || !a.session.Settings().Get().HideNotes
			for _, n := range notes {
				a.printNote(n, showBody)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "text to search in titles, bodies and tags")
	cmd.Flags().IntVar(&filter.Mood, "mood", 0, "only this mood")
	cmd.Flags().StringVar(&moment, "moment", "", "only this moment type")
	cmd.Flags().StringVar(&filter.Tag, "tag", "", "only notes with this tag")
	cmd.Flags().IntVar(&filter.Year, "year", 0, "only this year")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print bodies even when notes are hidden")
	return cmd
}

func NewWeeksCommand(opts *RootOptions) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "weeks",
		Short: "Show the weeks of a year and which have a note",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if year == 0 {
				year = a.opts.now().Year()
			}
			weeks := a.session.Notes().Weeks(year)
			if a.opts.JSON {
				return a.printJSON(weeks)
			}
			filled := 0
			for _, w := range weeks {
				mark := " "
				switch {
				case w.HasNote:
					mark = "*"
					filled++
				case w.IsCurrent:
					mark = ">"
				case w.IsFuture:
					mark = "."
				}
				a.printf("%s %s  %s - %s\n", mark, w.WeekKey, w.StartDate.Format("Jan 02"), w.EndDate.Format("Jan 02"))
			}
			a.printf("%d of %d weeks filled\n", filled, len(weeks))
			if a.session.Notes().CanReplay() {
				a.printf("year in review unlocked\n")
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&year, "year", 0, "year to show, the current one by default")
	return cmd
}
