// Package statuscmder provides the status command for displaying the outcome
// of the last indexing run recorded in the local .parlance directory.
package statuscmder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/parlancehq/parlance/pkg/cliui"
	"github.com/parlancehq/parlance/pkg/dotdir"
)

const statusLongDesc string = `Show the last indexing run.

Reads the local .parlance/ directory (or ~/.parlance/) to display when the
corpus was last indexed and what the run changed, without touching the
vector stores.

If no indexing state exists, indicates that the corpus has never been
indexed.

Examples:
  parlance status`

const statusShortDesc string = "Show the last indexing run"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(configDir)
		},
	}

	return cmd
}

func runStatus(configDir string) error {
	manager := dotdir.NewManager()

	state, err := manager.LoadIndexState(configDir)
	if err != nil {
		return fmt.Errorf("loading index state: %w", err)
	}

	if state == nil {
		fmt.Printf("  %s Corpus has never been indexed. Run parlance index first.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Printf("\n  %s  %s %s\n",
		cliui.KeyStyle.Render("Indexed:  "),
		cliui.ValueStyle.Render(state.IndexedAt.Local().Format("2006-01-02 15:04:05")),
		cliui.DimStyle.Render(fmt.Sprintf("(%s ago)", formatAge(time.Since(state.IndexedAt)))),
	)
	fmt.Printf("  %s  %s %s\n",
		cliui.KeyStyle.Render("Corpus:   "),
		cliui.NameStyle.Render(state.Corpus),
		cliui.DimStyle.Render("["+strings.Join(state.Languages, ", ")+"]"),
	)
	fmt.Printf("  %s  %s %s\n",
		cliui.KeyStyle.Render("Sources:  "),
		cliui.ValueStyle.Render(strconv.Itoa(state.Sources)),
		cliui.DimStyle.Render(fmt.Sprintf("+%d added  ~%d updated  =%d skipped  -%d removed",
			state.Added, state.Updated, state.Skipped, state.Removed)),
	)
	fmt.Printf("  %s  %s\n\n",
		cliui.KeyStyle.Render("Records:  "),
		cliui.ValueStyle.Render(strconv.Itoa(state.TotalRecords)),
	)

	return nil
}

// formatAge renders a duration in the largest sensible unit.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
