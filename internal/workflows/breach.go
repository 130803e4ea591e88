package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BreachAlertInput is the input for the breach alert workflow.
type BreachAlertInput struct {
	EventID     string
	DeviceID    string
	GeofenceID  string
	FleetID     string
	FenceName   string
	GracePeriod time.Duration // how long the device may linger before alerting
}

// DefaultGracePeriod applies when the input does not specify one. A device
// that clips the corner of a restricted zone and leaves within the grace
// period never triggers an alert.
const DefaultGracePeriod = 2 * time.Minute

// BreachAlertWorkflow handles a device entering a restricted geofence. It
// waits out a grace period, re-checks whether the device is still inside,
// and if so marks the event alerted and notifies the fleet operator. If the
// notification cannot be delivered, the alerted mark is rolled back so the
// breach is retried by the next position evaluation (saga compensation).
func BreachAlertWorkflow(ctx workflow.Context, input BreachAlertInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting breach alert workflow", "device", input.DeviceID, "geofence", input.GeofenceID)

	grace := input.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if err := workflow.Sleep(ctx, grace); err != nil {
		return err
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Is the device still inside after the grace period?
	var stillInside bool
	err := workflow.ExecuteActivity(ctx, "CheckStillInside", input.DeviceID, input.GeofenceID).Get(ctx, &stillInside)
	if err != nil {
		return err
	}
	if !stillInside {
		logger.Info("Device left restricted zone within grace period, no alert", "device", input.DeviceID)
		return nil
	}

	// Step 2: Mark the event alerted
	err = workflow.ExecuteActivity(ctx, "RecordAlert", input.EventID).Get(ctx, nil)
	if err != nil {
		return err
	}

	// Step 3: Notify the fleet operator
	err = workflow.ExecuteActivity(ctx, "SendBreachNotification", input.FleetID, input.DeviceID, input.FenceName).Get(ctx, nil)
	if err != nil {
		logger.Warn("breach notification failed, rolling back alert mark", "error", err)
		_ = workflow.ExecuteActivity(ctx, "ClearAlert", input.EventID).Get(ctx, nil)
		return err
	}

	logger.Info("Breach alert delivered", "device", input.DeviceID, "geofence", input.GeofenceID)
	return nil
}
