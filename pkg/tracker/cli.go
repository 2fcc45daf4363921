package tracker

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/transitlens/transitlens/pkg/config"
	"github.com/transitlens/transitlens/pkg/datasource"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Realtime vehicle tracking pipeline",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the tracking pipeline with the status server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "path to a YAML configuration file",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}

					source := datasource.NewClient(datasource.Config{
						BaseURL:     cfg.DataSource.BaseURL,
						AccessToken: cfg.DataSource.AccessToken,
						Timeout:     cfg.DataSource.Timeout.Std(),
					})

					instance, err := New(cfg, source, nil, logFrames)
					if err != nil {
						return err
					}

					go func() {
						if err := instance.StartStatusServer(cfg.Server.Listen); err != nil {
							log.Error().Err(err).Msg("Status server failed")
						}
					}()

					ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					return instance.Run(ctx)
				},
			},
		},
	}
}

// logFrames is the render target used when running headless: each frame
// becomes a log line instead of a drawn map.
func logFrames(frame Frame) {
	log.Debug().
		Int("vehicles", len(frame.Vehicles)).
		Int("stops", len(frame.Stops)).
		Int("visible", len(frame.Markers)).
		Bool("stale", frame.Status.Stale).
		Msg("Frame rendered")
}
