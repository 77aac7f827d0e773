package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/output"
)

// NewTrainCommand creates the train command.
func NewTrainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Retrain the prediction model",
		Long: `Ask the prediction service to retrain its model on the latest data.
Training runs synchronously on the service and may take several minutes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd)
		},
	}
}

func runTrain(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	cc.Logger.Info("training model", "base_url", cc.Client.BaseURL())
	msg, err := cc.Client.TrainModel(cmd.Context())
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]string{"message": msg})
	}
	if msg == "" {
		msg = "Model trained"
	}
	r.Success(msg)
	return nil
}
