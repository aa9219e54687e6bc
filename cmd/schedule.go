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
	"github.com/kilianp07/fieldsched/core/compose"
	"github.com/kilianp07/fieldsched/infra/logger"
)

var (
	requestPath string
	withReport  bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Compose an itinerary from a JSON scheduling request",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVarP(&requestPath, "request", "r", "", "scheduling request file (JSON)")
	scheduleCmd.Flags().BoolVar(&withReport, "report", false, "include the optimization report")
	_ = scheduleCmd.MarkFlagRequired("request")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
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
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	raw, err := os.ReadFile(requestPath)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	var req compose.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}

	it, err := svc.Schedule(ctx, req)
	if err != nil {
		return err
	}

	out := struct {
		Itinerary any `json:"itinerary"`
		Report    any `json:"report,omitempty"`
	}{Itinerary: it}
	if withReport {
		out.Report = svc.Composer.OptimizationReport(it)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
