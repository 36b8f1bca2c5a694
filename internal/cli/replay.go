package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anthropics/threadline/internal/compose"
	"github.com/anthropics/threadline/internal/domain"
	"github.com/anthropics/threadline/internal/store"
)

var (
	replayDBPath string
	replayRoot   string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Print the timelines stored in an event log",
	Long: `Load an event log, materialize every thread once, and print the root
timeline with delegate timelines nested under the tool calls that
spawned them.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayDBPath, "db", "", "path to the event log database")
	replayCmd.Flags().StringVar(&replayRoot, "root", "main", "root thread id")
	replayCmd.MarkFlagRequired("db")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	eventLog, err := store.OpenDurableLog(replayDBPath)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer eventLog.Close()

	session, err := compose.NewSession(eventLog, domain.ThreadID(replayRoot))
	if err != nil {
		return err
	}
	if err := session.Resume(cmd.Context()); err != nil {
		return fmt.Errorf("resume session: %w", err)
	}

	snap := session.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "thread %s\n", replayRoot)
	renderTimeline(cmd.OutOrStdout(), snap.Root, snap.Delegates, 1)
	renderUnlinked(cmd.OutOrStdout(), snap)
	return nil
}

// renderTimeline prints one timeline, recursing into delegate timelines at
// the tool call that spawned them.
func renderTimeline(w io.Writer, tl domain.Timeline, delegates map[domain.ThreadID]domain.Timeline, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, item := range tl.Items {
		switch item.Kind {
		case domain.ItemMessage:
			fmt.Fprintf(w, "%s[%s] %s\n", pad, item.Role, item.Text)
		case domain.ItemToolExecution:
			fmt.Fprintf(w, "%s[tool %s] %s(%s) -> %s", pad, item.CallID, item.ToolName, item.Args, item.Status)
			if item.Status != domain.ToolPending {
				fmt.Fprintf(w, ": %s", item.Output)
			}
			fmt.Fprintln(w)
			if item.DelegatedThreadID != "" {
				if child, ok := delegates[item.DelegatedThreadID]; ok {
					fmt.Fprintf(w, "%s  thread %s\n", pad, item.DelegatedThreadID)
					renderTimeline(w, child, delegates, depth+2)
				}
			}
		case domain.ItemStandaloneResult:
			fmt.Fprintf(w, "%s[result %s] %s\n", pad, item.CallID, item.Output)
		}
	}
}

// renderUnlinked prints delegate timelines no tool call points at, so
// malformed logs still show everything they contain.
func renderUnlinked(w io.Writer, snap domain.ProcessedThreads) {
	linked := make(map[domain.ThreadID]bool)
	var mark func(tl domain.Timeline)
	mark = func(tl domain.Timeline) {
		for _, item := range tl.Items {
			if item.DelegatedThreadID == "" {
				continue
			}
			if child, ok := snap.Delegates[item.DelegatedThreadID]; ok && !linked[item.DelegatedThreadID] {
				linked[item.DelegatedThreadID] = true
				mark(child)
			}
		}
	}
	mark(snap.Root)

	var orphans []domain.ThreadID
	for id := range snap.Delegates {
		if !linked[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	for _, id := range orphans {
		fmt.Fprintf(w, "thread %s (unlinked)\n", id)
		renderTimeline(w, snap.Delegates[id], snap.Delegates, 1)
	}
}
