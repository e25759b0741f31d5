package probe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apigear-io/sioprobe/pkg/config"
	"github.com/apigear-io/sioprobe/pkg/dispatch"
	"github.com/apigear-io/sioprobe/pkg/log"
	"github.com/apigear-io/sioprobe/pkg/net"
	"github.com/apigear-io/sioprobe/pkg/subscription"
)

// Options carry the run's collaborators; zero values use the defaults.
type Options struct {
	// Out receives event lines, standard output when nil.
	Out io.Writer
	// ConnectTimeout bounds the connection attempt.
	ConnectTimeout time.Duration
}

// Run connects, prints events until the session ends and returns the
// failure that ended it, if any. Cancelling ctx closes the connection and
// counts as a normal end.
func Run(ctx context.Context, cfg config.Config, opts Options) error {
	start := time.Now()

	client, err := net.NewClient(net.ClientOptions{
		URL:        cfg.HostURL,
		Path:       cfg.Path,
		Transports: cfg.Transports,
		Timeout:    opts.ConnectTimeout,
	})
	if err != nil {
		return err
	}

	// handlers go in before Open so the connect notification cannot be missed
	d := dispatch.New(cfg.ListenTo, opts.Out)
	if cfg.UseWildcard {
		d.RegisterWildcard(net.Wildcard(client))
	} else {
		d.Register(client)
	}

	log.Info().Str("url", cfg.HostURL).Str("endpoint", client.Endpoint()).Bool("wildcard", cfg.UseWildcard).Strs("listen", cfg.ListenTo).Msg("connecting")
	if err := client.Open(ctx); err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := subscribe(client, d, cfg.SubscribeTo); err != nil {
		return err
	}

	if cfg.Wait > 0 {
		timer := time.AfterFunc(time.Until(start.Add(cfg.Wait)), func() {
			log.Info().Dur("wait", cfg.Wait).Msg("wait time elapsed, closing")
			_ = client.Close()
		})
		defer timer.Stop()
	}

	select {
	case <-client.Done():
	case <-ctx.Done():
		log.Info().Msg("interrupted, closing")
		_ = client.Close()
		<-client.Done()
	}

	if seen := d.Seen(); len(seen) > 0 {
		log.Debug().Strs("untracked", seen).Msg("untracked events seen")
	}
	if err := client.Err(); err != nil {
		return fmt.Errorf("connection to %s: %w", cfg.HostURL, err)
	}
	return nil
}

// subscribe encodes, announces and emits each directive in order.
func subscribe(client *net.Client, d *dispatch.Dispatcher, raws []string) error {
	for _, raw := range raws {
		s, err := subscription.Encode(raw)
		if err != nil {
			return err
		}
		if err := d.Subscribe(s); err != nil {
			return err
		}
		if err := client.Emit(s.EventName, s.Args()...); err != nil {
			return fmt.Errorf("emit %s: %w", s.EventName, err)
		}
	}
	return nil
}
