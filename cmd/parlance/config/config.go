// Package configcmder provides the config command for managing persistent
// parlance configuration stored in the .parlance/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent parlance configuration.

Configuration is stored as config.toml in the .parlance/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values, and PARLANCE_* environment variables sit between the two.

Keys use dotted notation matching the TOML section structure:
  corpus.root, corpus.languages,
  chunker.chunk_size, chunker.overlap, chunker.boundary_window,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  vector_store.provider, vector_store.target,
  search.top_k, search.threshold, search.language_priority,
  history.provider, history.target, history.max_messages, history.max_age_minutes,
  api.listen, client.api_target,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  parlance config set <key> <value>    Set a configuration value
  parlance config get <key>            Get a configuration value
  parlance config list                 List all configuration values

Examples:
  parlance config set corpus.root ./corpus
  parlance config set embedding.model embeddinggemma
  parlance config get search.top_k
  parlance config list`

const configShortDesc string = "Manage persistent parlance configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
