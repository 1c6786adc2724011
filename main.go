package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/musiccast-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:  "musiccast-controller",
		Usage: "keeps Yamaha MusicCast devices in sync and bridges them to home automation",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "hosts",
				EnvVars: []string{"MUSICCAST_HOSTS"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
			&cli.StringFlag{
				Name:    "log-file",
				EnvVars: []string{"LOG_FILE"},
			},
			&cli.DurationFlag{
				Name:    "http-timeout",
				EnvVars: []string{"MUSICCAST_HTTP_TIMEOUT"},
			},
			&cli.IntFlag{
				Name:    "udp-port",
				EnvVars: []string{"MUSICCAST_UDP_PORT"},
				Value:   41100,
			},
			&cli.IntFlag{
				Name:    "upnp-port",
				Usage:   "media renderer port for url playback, 0 disables it",
				EnvVars: []string{"MUSICCAST_UPNP_PORT"},
				Value:   49154,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the service",
				Action: cmd.ServeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "resync-schedule",
						EnvVars: []string{"MUSICCAST_RESYNC_SCHEDULE"},
					},
					&cli.StringFlag{
						Name:    "http-addr",
						EnvVars: []string{"HTTP_ADDR"},
					},
					&cli.StringFlag{
						Name:    "mqtt-host",
						EnvVars: []string{"MQTT_HOST"},
					},
					&cli.StringFlag{
						Name:    "mqtt-user",
						EnvVars: []string{"MQTT_USER"},
					},
					&cli.StringFlag{
						Name:    "mqtt-pass",
						EnvVars: []string{"MQTT_PASS"},
					},
					&cli.StringFlag{
						Name:    "influx-url",
						EnvVars: []string{"INFLUX_URL"},
					},
					&cli.StringFlag{
						Name:    "influx-token",
						EnvVars: []string{"INFLUX_TOKEN"},
					},
					&cli.StringFlag{
						Name:    "influx-org",
						EnvVars: []string{"INFLUX_ORG"},
					},
					&cli.StringFlag{
						Name:    "influx-bucket",
						EnvVars: []string{"INFLUX_BUCKET"},
					},
				},
			},
			{
				Name:   "state",
				Usage:  "print the state of every device",
				Action: cmd.StateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "json or yaml",
						Value: "json",
					},
				},
			},
			{
				Name:  "group",
				Usage: "link devices into a group",
				Subcommands: []*cli.Command{
					{
						Name:   "join",
						Usage:  "make clients play the server's zone",
						Action: cmd.GroupJoinCommand,
						Flags:  groupFlags(),
					},
					{
						Name:   "leave",
						Usage:  "remove clients from the server's group",
						Action: cmd.GroupLeaveCommand,
						Flags:  groupFlags(),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func groupFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "server",
			Usage:    "device id or ip of the group server",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:     "client",
			Usage:    "device id or ip of a client, repeatable",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "zone",
			Usage: "zone of the server",
			Value: "main",
		},
		&cli.StringFlag{
			Name:  "client-zone",
			Usage: "zone linked on each client",
			Value: "main",
		},
	}
}
