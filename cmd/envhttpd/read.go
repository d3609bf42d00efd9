package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"envhttpd/services/hal"
	"envhttpd/types"

	"github.com/spf13/cobra"
)

func newReadCmd(a *app) *cobra.Command {
	var trace, asJSON bool
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Poll the sensors once and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := hal.New(cmd.Context(), a.cfg.HAL, hal.Options{Logger: a.log, Trace: trace})
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.Poll(cmd.Context())
			out := cmd.OutOrStdout()
			if trace {
				printTrace(out, st)
			}
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printSnapshot(out, snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print every I2C transaction")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func printSnapshot(w io.Writer, s types.Snapshot) {
	env := s.Combined.Value.Env()
	fmt.Fprintf(w, "BME280  raw T=%d P=%d H=%d\n", s.Combined.Raw.Temperature, s.Combined.Raw.Pressure, s.Combined.Raw.Humidity)
	fmt.Fprintf(w, "        %.2f °C  %.4f hPa  %.4f %%  (%s, %s, %s)\n",
		s.Combined.Value.TemperatureC, s.Combined.Value.PressureHPa, s.Combined.Value.HumidityPct,
		env.Temperature, env.Pressure, env.Humidity)
	fmt.Fprintf(w, "TMP117  raw T=%d\n", s.Precision.Raw)
	fmt.Fprintf(w, "        %.4f °C  (%s)\n", s.Precision.TemperatureC, s.Precision.Temperature())
}

func printTrace(w io.Writer, st *hal.Station) {
	tr := st.Trace()
	names := make([]string, 0, len(tr))
	for k := range tr {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, op := range tr[name] {
			fmt.Fprintf(w, "%s  0x%02X  w=% X  r=% X\n", name, op.Addr, op.W, op.R)
		}
	}
}
