// Package main implements the scheduled maintenance Lambda. Triggered
// by EventBridge, it applies importance decay and thread archival to
// the users named in the event detail.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"engram/application/commands"
	"engram/infrastructure/config"
	"engram/infrastructure/di"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

var container *di.Container

// maintenanceDetail is the EventBridge event payload
type maintenanceDetail struct {
	UserID  string   `json:"user_id,omitempty"`
	UserIDs []string `json:"user_ids,omitempty"`
}

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.IsLambda = true

	container, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
}

// Handler runs one maintenance pass per user in the event detail.
// A failed user does not stop the rest of the batch.
func Handler(ctx context.Context, event awsevents.CloudWatchEvent) error {
	var detail maintenanceDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("failed to parse event detail: %w", err)
	}

	userIDs := detail.UserIDs
	if detail.UserID != "" {
		userIDs = append(userIDs, detail.UserID)
	}
	if len(userIDs) == 0 {
		container.Logger.Warn("maintenance event carried no users",
			zap.String("source", event.Source),
		)
		return nil
	}

	var failed int
	for _, userID := range userIDs {
		result, err := container.MaintenanceHandler.Handle(ctx, commands.RunMaintenanceCommand{UserID: userID})
		if err != nil {
			failed++
			container.Logger.Error("maintenance pass failed",
				zap.String("userID", userID),
				zap.Error(err),
			)
			continue
		}
		container.Logger.Info("maintenance pass completed",
			zap.String("userID", userID),
			zap.Int("nodesDecayed", result.NodesDecayed),
			zap.Int("threadsArchived", result.ThreadsArchived),
		)
	}

	if failed == len(userIDs) {
		return fmt.Errorf("maintenance failed for all %d users", failed)
	}
	return nil
}

func main() {
	lambda.Start(Handler)
}
