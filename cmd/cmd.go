package cmd

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ollama/pretok/envconfig"
	"github.com/ollama/pretok/logutil"
	"github.com/ollama/pretok/pretoken"
	"github.com/ollama/pretok/pretokenize"
)

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// unescape interprets Go escape sequences so separators such as "\n\n" can
// be given on the command line.
func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

// optionsFromFlags reads the flags shared by every command. Unset flags are
// left zero so pretokenize falls back to the environment.
func optionsFromFlags(cmd *cobra.Command) (pretokenize.Options, error) {
	var opts pretokenize.Options

	flags := cmd.Flags()
	if flags.Lookup("workers") != nil {
		workers, err := flags.GetInt("workers")
		if err != nil {
			return opts, err
		}
		opts.Workers = workers
	}

	chunks, err := flags.GetInt("chunks")
	if err != nil {
		return opts, err
	}
	opts.Chunks = chunks

	if flags.Changed("separator") {
		separator, err := flags.GetString("separator")
		if err != nil {
			return opts, err
		}
		opts.Separator = []byte(unescape(separator))
	}

	window, err := flags.GetInt("window")
	if err != nil {
		return opts, err
	}
	opts.Window = window

	if flags.Lookup("strict") != nil {
		strict, err := flags.GetBool("strict")
		if err != nil {
			return opts, err
		}

		if strict {
			opts.Policy = pretoken.Strict
		}
	}

	return opts, nil
}

func addChunkFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("chunks", "c", 0, "Number of chunks to divide the file into (default one per worker)")
	cmd.Flags().String("separator", envconfig.Separator(), "Document separator chunk boundaries are aligned to")
	cmd.Flags().Int("window", 0, "Bytes read at a time while searching for a separator (default 4096)")
}

func EnvHandler(cmd *cobra.Command, args []string) error {
	envs := envconfig.AsMap()

	var data [][]string
	for _, k := range slices.Sorted(maps.Keys(envs)) {
		e := envs[k]
		data = append(data, []string{e.Name, fmt.Sprintf("%v", e.Value), e.Description})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"NAME", "VALUE", "DESCRIPTION"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()

	return nil
}

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "pretok",
		Short:         "Count pretokens in a training corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
	}

	countCmd := &cobra.Command{
		Use:   "count FILE",
		Short: "Count the pretokens in a file",
		Args:  cobra.ExactArgs(1),
		RunE:  CountHandler,
	}

	countCmd.Flags().IntP("workers", "w", 0, "Number of chunks scanned in parallel (default number of CPUs)")
	addChunkFlags(countCmd)
	countCmd.Flags().Bool("strict", envconfig.StrictUTF8(), "Fail on malformed UTF-8 instead of dropping it")
	countCmd.Flags().IntP("top", "n", 20, "Number of most frequent pretokens to show")
	countCmd.Flags().StringP("output", "o", "", "Write the merged counts to a JSON file")
	countCmd.Flags().String("metrics", "", "Write Prometheus metrics to a text file")

	boundariesCmd := &cobra.Command{
		Use:   "boundaries FILE",
		Short: "Show the chunk boundaries of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  BoundariesHandler,
	}

	addChunkFlags(boundariesCmd)

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show environment configuration",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}

	envVars := envconfig.AsMap()
	appendEnvDocs(countCmd, []envconfig.EnvVar{
		envVars["PRETOK_DEBUG"],
		envVars["PRETOK_NUM_PARALLEL"],
		envVars["PRETOK_NUM_CHUNKS"],
		envVars["PRETOK_SEPARATOR"],
		envVars["PRETOK_WINDOW"],
		envVars["PRETOK_STRICT_UTF8"],
	})
	appendEnvDocs(boundariesCmd, []envconfig.EnvVar{
		envVars["PRETOK_DEBUG"],
		envVars["PRETOK_NUM_CHUNKS"],
		envVars["PRETOK_SEPARATOR"],
		envVars["PRETOK_WINDOW"],
	})

	rootCmd.AddCommand(
		countCmd,
		boundariesCmd,
		envCmd,
	)

	return rootCmd
}
