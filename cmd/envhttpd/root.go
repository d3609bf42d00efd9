package main

import (
	"io"
	"log/slog"
	"sort"
	"strings"

	"envhttpd/services/config"
	"envhttpd/services/logging"
	"envhttpd/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries state shared by the subcommands once configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg types.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	boards := config.Boards()
	sort.Strings(boards)

	root := &cobra.Command{
		Use:   "envhttpd",
		Short: "Environmental sensor HTTP endpoint",
		Long: `envhttpd polls a BME280 (temperature, pressure, humidity) and a TMP117
(precision temperature) on every GET / and renders the compensated
readings as an HTML page.

Configuration is layered: embedded board defaults, --config file,
ENVHTTPD_* environment variables, then flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (JSON) layered over the board defaults")
	pf.String("board", config.DefaultBoard, "board profile, one of ["+strings.Join(boards, ", ")+"]")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("board", pf.Lookup("board"))
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))

	root.AddCommand(newServeCmd(a), newReadCmd(a))
	return root
}

func (a *app) load(logOut io.Writer) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	slog.SetDefault(a.log)
	a.log.Debug("configuration loaded", "board", cfg.Board, "file", a.cfgFile, "devices", len(cfg.HAL.Devices))
	return nil
}
