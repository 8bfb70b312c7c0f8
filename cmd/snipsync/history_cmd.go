package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/openmined/snipsync/internal/journal"
	"github.com/openmined/snipsync/internal/mirror"
	"github.com/openmined/snipsync/internal/utils"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			var entries []journal.Entry
			if utils.FileExists(cfg.JournalPath()) {
				j := journal.NewJournal(cfg.JournalPath())
				if err := j.Open(); err != nil {
					return err
				}
				defer j.Close()

				if entries, err = j.Recent(limit); err != nil {
					return err
				}
			}

			if asJSON {
				return writeHistoryJSON(cmd.OutOrStdout(), entries)
			}
			return writeHistoryTable(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of entries to show (0 for all)")
	cmd.Flags().Bool("json", false, "Print entries as JSON")
	return cmd
}

func writeHistoryJSON(w io.Writer, entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func writeHistoryTable(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no sync activity recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPHASE\tFROM\tACTION\tNAME\tSIZE\tERROR")
	for _, e := range entries {
		size := "-"
		if e.Bytes > 0 {
			size = humanize.Bytes(uint64(e.Bytes))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Time.Local().Format("2006-01-02 15:04:05"),
			e.Phase,
			e.Origin,
			actionColor(e.Action)(e.Action),
			e.Name,
			size,
			e.Error,
		)
	}
	return tw.Flush()
}

func actionColor(action string) func(a ...any) string {
	switch mirror.Action(action) {
	case mirror.ActionFailed:
		return red
	case mirror.ActionCopied, mirror.ActionReplaced, mirror.ActionDeleted:
		return green
	case mirror.ActionEcho, mirror.ActionIgnored:
		return color.New(color.Faint).SprintFunc()
	default:
		return fmt.Sprint
	}
}
