package main

import (
	"context"
	"log"

	"data-migration/infrastructure/config"
	"data-migration/infrastructure/di"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeVersionHistoryContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Logger.Sync()

	lambda.Start(container.Processor.HandleDynamoDBEvent)
}
