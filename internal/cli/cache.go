package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"battdash/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Operate the local CSV cache",
	Long: `Operate the on-disk cache of parsed battery CSV files.

These commands work offline and are safe while the servers run; the cache
index is file-locked.

Examples:
  battdash cache stats
  battdash cache clear-expired
  battdash cache remove 1AbCdEfGhIj
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache occupancy and entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		st, err := openCacheStore()
		if err != nil {
			return err
		}
		printCacheStats(cmd.OutOrStdout(), st)
		return nil
	},
}

var cacheClearExpiredCmd = &cobra.Command{
	Use:   "clear-expired",
	Short: "Remove every cache entry past its TTL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		st, err := openCacheStore()
		if err != nil {
			return err
		}
		n, err := st.ClearExpired()
		if err != nil {
			return err
		}
		okf(cmd.OutOrStdout(), "removed %d expired entries", n)
		return nil
	},
}

var cacheRemoveCmd = &cobra.Command{
	Use:   "remove FILE_ID",
	Short: "Evict one file from the cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		fileID := strings.TrimSpace(args[0])
		if fileID == "" {
			return fmt.Errorf("file id required")
		}
		st, err := openCacheStore()
		if err != nil {
			return err
		}
		entry, ok := st.Entry(fileID)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "nothing cached under %s\n", fileID)
			return nil
		}
		if err := st.Remove(fileID); err != nil {
			return err
		}
		okf(cmd.OutOrStdout(), "removed %s (%s)", fileID, entry.FileName)
		return nil
	},
}

func openCacheStore() (*store.Store, error) {
	return store.Open(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.MemoryEntries, nil)
}

func printCacheStats(w io.Writer, st *store.Store) {
	stats := st.Stats()
	fmt.Fprintf(w, "Cache directory: %s\n", stats.Directory)
	fmt.Fprintf(w, "Cached files:    %d (%d within TTL)\n", stats.TotalFiles, stats.ValidFiles)
	fmt.Fprintf(w, "Disk usage:      %.2f MB\n", stats.DiskUsageMB)

	entries := st.Entries()
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Entries:")
	for _, e := range entries {
		fmt.Fprintf(w, "  %-40s %7d rows %4d cols  updated %s\n",
			e.FileName, e.RowCount, e.ColumnCount, e.LastUpdated.Format(time.RFC3339))
	}
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearExpiredCmd)
	cacheCmd.AddCommand(cacheRemoveCmd)
}
