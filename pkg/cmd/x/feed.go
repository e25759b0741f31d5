package x

import (
	"time"

	"github.com/apigear-io/sioprobe/pkg/net"
	"github.com/spf13/cobra"
)

func NewFeedCommand() *cobra.Command {
	var opts net.FeedOptions
	var file string
	var gen net.GenerateOptions
	var cmd = &cobra.Command{
		Use:     "feed",
		Aliases: []string{"f", "serve"},
		Short:   "Run a local Socket.IO server replaying recorded events",
		Long: `The feed server accepts Socket.IO clients on any namespace and, once a
client joined one, emits the events of an NDJSON file to it.
Each line holds one event as a JSON array: ["name", arg...].`,
		Example: `  sioprobe x feed --file events.ndjson --interval 200ms --repeat -1
  sioprobe x feed --generate 20 --names atlas_result,atlas_error --disconnect`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				events, err := net.LoadFeed(file)
				if err != nil {
					return err
				}
				opts.Events = events
			}
			if gen.Count > 0 {
				events, err := net.GenerateFeed(gen)
				if err != nil {
					return err
				}
				opts.Events = append(opts.Events, events...)
			}
			return net.RunFeedServer(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Addr, "address", "a", ":8080", "feed server address")
	cmd.Flags().StringVarP(&opts.Path, "path", "p", "/socket.io/", "socket.io handshake path")
	cmd.Flags().StringVarP(&file, "file", "f", "", "NDJSON file with the events to replay")
	cmd.Flags().IntVarP(&gen.Count, "generate", "g", 0, "number of synthetic events to add")
	cmd.Flags().Uint64Var(&gen.Seed, "seed", 0, "seed for synthetic events, 0 is random")
	cmd.Flags().StringSliceVar(&gen.Names, "names", nil, "event names for synthetic events")
	cmd.Flags().DurationVarP(&opts.Interval, "interval", "i", 100*time.Millisecond, "sleep between events")
	cmd.Flags().IntVarP(&opts.Batch, "batch", "b", 1, "number of events sent per interval")
	cmd.Flags().IntVarP(&opts.Repeat, "repeat", "r", 1, "number of replays, -1 for infinite")
	cmd.Flags().StringSliceVarP(&opts.Transports, "transport", "t", nil, "transports to accept, polling and websocket by default")
	cmd.Flags().BoolVarP(&opts.Disconnect, "disconnect", "d", false, "disconnect clients after the replay")
	return cmd
}
