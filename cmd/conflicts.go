package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fieldsched/app"
	"github.com/kilianp07/fieldsched/config"
	"github.com/kilianp07/fieldsched/core/conflict"
	"github.com/kilianp07/fieldsched/core/model"
)

var analysisPath string

// conflictInput is the JSON shape accepted by the conflicts command.
type conflictInput struct {
	Proposal conflict.Proposal           `json:"proposal"`
	Existing []model.ExistingAppointment `json:"existing"`
	Agent    struct {
		TimeZone              string `json:"timezone"`
		MaxAppointmentsPerDay int    `json:"max_appointments_per_day"`
		WorkingHoursStart     string `json:"working_hours_start"`
		WorkingHoursEnd       string `json:"working_hours_end"`
	} `json:"agent"`
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Analyze a proposed appointment against an existing calendar",
	RunE:  runConflicts,
}

func init() {
	conflictsCmd.Flags().StringVarP(&analysisPath, "input", "i", "", "analysis input file (JSON)")
	_ = conflictsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(conflictsCmd)
}

func runConflicts(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close(cmd.Context())

	raw, err := os.ReadFile(analysisPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var in conflictInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	agent := model.AgentConstraints{
		TimeZone:              in.Agent.TimeZone,
		MaxAppointmentsPerDay: in.Agent.MaxAppointmentsPerDay,
	}
	if in.Agent.WorkingHoursStart != "" {
		agent.WorkingHours, err = model.ParseWorkingHours(in.Agent.WorkingHoursStart, in.Agent.WorkingHoursEnd)
		if err != nil {
			return err
		}
	}

	res, err := svc.Analyzer.Analyze(in.Proposal, in.Existing, agent)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
