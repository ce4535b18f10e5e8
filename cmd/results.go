package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/optima/internal/store"
	"github.com/spf13/cobra"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored run results",
	Long:  `List, inspect and clean the results that "run" stores under <data-dir>/runs/.`,
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results",
	RunE:  runListResults,
}

var showResultCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one stored result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowResult,
}

var cleanResultsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old results",
	Long:  `Delete results older than N days, or all but the newest N.`,
	RunE:  runCleanResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(listResultsCmd, showResultCmd, cleanResultsCmd)

	cleanResultsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N results (0 = keep all)")
	cleanResultsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete results older than N days (0 = no age limit)")
	cleanResultsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func openStore() (*store.FSStore, error) {
	s, err := store.NewFSStore(resultsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to create result store: %w", err)
	}
	return s, nil
}

func runListResults(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	infos, err := s.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	writeResultsTable(out, s, infos)
	fmt.Fprintf(out, "\nTotal results: %d\n", len(infos))
	return nil
}

func writeResultsTable(out io.Writer, s *store.FSStore, infos []store.RecordInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTIMESTAMP\tENGINE\tPROBLEM\tITERATIONS\tBEST SCORE\tFEASIBLE\tSIZE")
	fmt.Fprintln(w, "------\t---------\t------\t-------\t----------\t----------\t--------\t----")

	for _, info := range infos {
		size := "unknown"
		if n, err := getDirSize(s.RunDir(info.RunID)); err == nil {
			size = formatBytes(n)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%g\t%t\t%s\n",
			shortID(info.RunID),
			info.Timestamp.Local().Format("2006-01-02 15:04:05"),
			info.Engine,
			info.ProblemID,
			info.Iterations,
			info.BestScore,
			info.Feasible,
			size,
		)
	}
	w.Flush()
}

func runShowResult(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	record, err := s.LoadRecord(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func runCleanResults(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	infos, err := s.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	out := cmd.OutOrStdout()
	toDelete := selectForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No results match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d result(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s, %s)\n", shortID(info.RunID), info.Engine, info.Timestamp.Local().Format("2006-01-02 15:04:05"))
	}

	if !forceClean && !confirm(cmd.InOrStdin(), out) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := s.DeleteRecord(info.RunID); err != nil {
			slog.Error("Failed to delete result", "run_id", info.RunID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted result", "run_id", info.RunID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d result(s), %d failed.\n", deleted, failed)
	return nil
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

// selectForDeletion returns the results older than the age limit plus everything
// beyond the newest keepLast, each at most once.
func selectForDeletion(infos []store.RecordInfo, keepLast, olderThanDays int, now time.Time) []store.RecordInfo {
	selected := make(map[string]bool)
	var toDelete []store.RecordInfo
	add := func(info store.RecordInfo) {
		if !selected[info.RunID] {
			selected[info.RunID] = true
			toDelete = append(toDelete, info)
		}
	}

	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				add(info)
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := append([]store.RecordInfo(nil), infos...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		})
		for _, info := range sorted[keepLast:] {
			add(info)
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	return size, err
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
