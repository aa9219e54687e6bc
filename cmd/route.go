package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fieldsched/app"
	"github.com/kilianp07/fieldsched/config"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/core/route"
)

var waypointsPath string

// routeInput is the JSON shape accepted by the route command.
type routeInput struct {
	Waypoints []model.Location `json:"waypoints"`
	Start     *model.Location  `json:"start,omitempty"`
	End       *model.Location  `json:"end,omitempty"`
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Order a set of stops to minimize travel",
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().StringVarP(&waypointsPath, "waypoints", "w", "", "waypoints file (JSON)")
	_ = routeCmd.MarkFlagRequired("waypoints")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	raw, err := os.ReadFile(waypointsPath)
	if err != nil {
		return fmt.Errorf("read waypoints: %w", err)
	}
	var in routeInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("parse waypoints: %w", err)
	}

	res, err := svc.Optimizer.Optimize(ctx, in.Waypoints, &route.Constraints{
		StartLocation: in.Start,
		EndLocation:   in.End,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
