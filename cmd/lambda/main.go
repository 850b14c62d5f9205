package main

import (
	"context"
	"log"
	"time"

	"data-migration/infrastructure/config"
	"data-migration/infrastructure/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// Global variables for Lambda lifecycle management
var (
	// container holds the dependency injection container
	container *di.MigrationContainer

	// coldStart tracks whether this is a cold start invocation
	coldStart = true

	// coldStartTime records when the cold start began
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()
	log.Println("Lambda cold start initiated")

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The source connection lives as long as the execution environment.
	container, _, err = di.InitializeMigrationContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)),
	)
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	if coldStart {
		container.Logger.Debug("First invocation after cold start",
			zap.Duration("since_cold_start", time.Since(coldStartTime)),
		)
		coldStart = false
	}
	return container.Handler.HandleSQSEvent(ctx, event)
}

func main() {
	lambda.Start(Handler)
}
