package daemoncli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hanvon-linux/hanvond/internal/tablet"
	"github.com/hanvon-linux/hanvond/pkg/daemon"
	"github.com/spf13/cobra"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "hanvond"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type daemonProvider func() *daemon.Daemon

func NewRootCmd(configDir string) *cobra.Command {
	cfg := daemon.Config{
		TabletConfig: filepath.Join(configDir, "tablets.yml"),
	}
	rootCmd := &cobra.Command{
		Use:   "hanvond",
		Short: "Hanvon tablet daemon",
		Long:  `hanvond drives Hanvon graphics tablets over USB and exposes them as virtual input devices.`,
	}
	var d *daemon.Daemon
	daemonProvider := func() *daemon.Daemon {
		return d
	}
	rootCmd.PersistentFlags().StringVar(&cfg.TabletConfig, "tablet-config", cfg.TabletConfig, "tablet quirks config file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		d, err = daemon.NewDaemon(cfg)
		return err
	}
	rootCmd.AddCommand(NewRun(daemonProvider))
	rootCmd.AddCommand(NewListDevices(daemonProvider))
	rootCmd.AddCommand(NewListModels())
	return rootCmd
}

func NewRun(daemon daemonProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the tablet daemon",
		Long:  `Run the daemon: watch for tablet hotplug events and bridge attached tablets to virtual input devices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return daemon().Run(cmd.Context())
		},
	}
}

func NewListDevices(daemon daemonProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List attached Hanvon devices",
		Long:  `List Hanvon USB devices connected to the system and whether the daemon supports them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := daemon().ListDevices()
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(devices, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}

type modelInfo struct {
	Identity    string `json:"identity"`
	Name        string `json:"name"`
	MaxX        int32  `json:"maxX"`
	MaxY        int32  `json:"maxY"`
	MaxPressure int32  `json:"maxPressure"`
	Buttons     int    `json:"buttons"`
	Wheel       bool   `json:"wheel"`
}

func NewListModels() *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List supported tablet models",
		Long:  `List the tablet models the daemon knows how to drive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var models []modelInfo
			for _, cap := range tablet.Models() {
				id := tablet.Identity{Vendor: tablet.VendorID, Product: cap.Product}
				models = append(models, modelInfo{
					Identity:    id.String(),
					Name:        cap.Name,
					MaxX:        cap.MaxX,
					MaxY:        cap.MaxY,
					MaxPressure: cap.MaxPressure,
					Buttons:     len(cap.LeftButtons) + len(cap.RightButtons) + len(cap.PadButtons),
					Wheel:       cap.SupportsWheel,
				})
			}
			jsonB, err := json.MarshalIndent(models, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}
