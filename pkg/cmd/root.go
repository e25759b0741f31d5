package cmd

import (
	"context"

	"github.com/apigear-io/sioprobe/pkg/cmd/x"
	"github.com/apigear-io/sioprobe/pkg/config"
	"github.com/apigear-io/sioprobe/pkg/helper"
	"github.com/apigear-io/sioprobe/pkg/log"
	"github.com/apigear-io/sioprobe/pkg/probe"
	"github.com/spf13/cobra"
)

var rootOpts = struct {
	config  string
	logFile string
	verbose bool
}{}

// Execute runs the root command until it completes or the process is
// interrupted. The returned error has not been printed yet.
func Execute() error {
	ctx, stop := helper.WithSignals(context.Background())
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sioprobe [flags]",
		Short: "Connect to a Socket.IO stream and print its events",
		Long: `sioprobe connects to a Socket.IO endpoint, emits the given subscribe
directives and prints received events as lines on standard output:

  EVENT <name> <json-args>
  UNTRACKED EVENT <name>
  SUBSCRIBE <name> <json-params>

Logs and errors go to standard error.`,
		Example: `  sioprobe -l atlas_result -s 'atlas_subscribe {"stream_type":"result","msm":1001}'
  sioprobe -u http://localhost:8080 -a -w 5`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			log.Configure(log.Config{Verbose: rootOpts.verbose, File: rootOpts.logFile})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := loadOptions(cmd.Flags(), rootOpts.config)
			if err != nil {
				return err
			}
			cfg := config.Resolve(raw)
			log.Debug().Interface("config", cfg).Msg("resolved configuration")
			return probe.Run(cmd.Context(), cfg, probe.Options{Out: cmd.OutOrStdout()})
		},
	}

	flags := cmd.Flags()
	flags.StringP(keyURL, "u", config.DefaultURL, "stream endpoint url")
	flags.StringP(keyPath, "p", config.DefaultPath, "socket.io handshake path")
	flags.StringP(keyWait, "w", "0", "seconds to wait before closing the connection, 0 or a non-number waits forever")
	flags.StringArrayP(keyTransport, "t", []string{config.TransportWebSocket}, "transport to allow (websocket, polling, webtransport), can be repeated")
	flags.StringArrayP(keyListen, "l", nil, "event name to print, can be repeated")
	flags.StringArrayP(keySubscribe, "s", nil, "subscribe directive '<event> [json]', can be repeated")
	flags.BoolP(keyAllEvents, "a", false, "listen to all events, unknown ones are reported once")

	cmd.PersistentFlags().StringVarP(&rootOpts.config, "config", "c", "", "config file with the same keys as the flags")
	cmd.PersistentFlags().BoolVarP(&rootOpts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&rootOpts.logFile, "log-file", "", "also write logs to this file")

	cmd.AddCommand(x.NewXCommand())
	return cmd
}
