package historycmder

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/api"
	"github.com/parlancehq/parlance/pkg/cliui"
	"github.com/parlancehq/parlance/pkg/history"
	"github.com/parlancehq/parlance/pkg/logger"
)

const showLongDesc string = `Show a user's visible conversation window.

Messages are listed oldest first, exactly as the server would include them
in an agent prompt. Messages outside the time or count window are omitted.

Examples:
  parlance history show alice
  parlance history show alice --json`

const showShortDesc string = "Show a user's visible messages"

type showCommander struct {
	user    string
	jsonOut bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

func newShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show <user>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.user = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the raw history response as JSON")
	clientFlags(cmd, &cmder.apiTarget)

	return cmd
}

func (c *showCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	var output api.HistoryResponse
	if err := callHistoryAPI(http.MethodGet, c.apiTarget, historyPath(c.user), nil, &output); err != nil {
		return err
	}

	if c.jsonOut {
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if output.Count == 0 {
		fmt.Println("No messages in the window.")
		return nil
	}

	fmt.Printf("\n%s %s %s\n\n",
		headerStyle.Render("History for"),
		cliui.NameStyle.Render(output.User),
		dimStyle.Render(fmt.Sprintf("(%d messages)", output.Count)),
	)

	for _, msg := range output.Messages {
		printMessage(msg)
	}
	fmt.Println()

	return nil
}

func printMessage(msg history.Message) {
	fmt.Printf("  %s  %s %s\n",
		dimStyle.Render(msg.Timestamp.Local().Format("2006-01-02 15:04:05")),
		roleStyle.Render(fmt.Sprintf("%-9s", msg.Role)),
		previewStyle.Render(msg.Content),
	)
}
