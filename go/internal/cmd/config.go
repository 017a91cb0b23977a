package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/config"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/eventbus"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/realtime"
)

type options struct {
	ConfigPath string
	Login      string
	Password   string
	Help       bool
}

func parseFlags(args []string) (options, *pflag.FlagSet, error) {
	var opts options
	flagSet := pflag.NewFlagSet("labyrinth-client", pflag.ContinueOnError)
	flagSet.StringVar(&opts.ConfigPath, "config", os.Getenv("LABYRINTH_CONFIG"), "path to a YAML config file")
	flagSet.StringVar(&opts.Login, "login", "", "username or email to sign in with")
	flagSet.StringVar(&opts.Password, "password", "", "password for --login")
	flagSet.BoolVarP(&opts.Help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			opts.Help = true
			return opts, flagSet, nil
		}
		return options{}, flagSet, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, flagSet, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if opts.Login != "" && opts.Password == "" {
		return options{}, flagSet, errors.New("--password is required with --login")
	}
	return opts, flagSet, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `labyrinth-client plays labyrinth from the terminal.

Sign in once with --login and --password. The session is kept in the state
file and resumed on the next start, including the room you were seated in.

Usage:
  labyrinth-client [flags]

Flags:
%s`, flagSet.FlagUsages())
}

func webSocketConfig(cfg config.Config) realtime.WebSocketConfig {
	ws := realtime.DefaultWebSocketConfig()
	ws.HandshakeTimeout = cfg.HandshakeTimeout
	ws.WriteTimeout = cfg.WriteTimeout
	ws.ReadTimeout = cfg.ReadTimeout
	return ws
}

func managerConfig(cfg config.Config) (realtime.Config, error) {
	url, err := cfg.WebSocketURL()
	if err != nil {
		return realtime.Config{}, err
	}
	return realtime.Config{
		URL:              url,
		ReconnectBackoff: cfg.ReconnectBackoff,
		MaxRetries:       cfg.MaxRetries,
		HandshakeTimeout: cfg.HandshakeTimeout,
		PingInterval:     cfg.PingInterval,
		Clock:            clockwork.NewRealClock(),
	}, nil
}

func eventBusConfig(cfg config.Config) eventbus.Config {
	bus := eventbus.DefaultConfig()
	bus.URL = cfg.NATSURL
	bus.SubjectPrefix = cfg.NATSSubjectPrefix
	return bus
}
