package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/vetcare-platform/cmd/mainconfig"
	"github.com/wolfman30/vetcare-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/vetcare-platform/internal/config"
	domainevents "github.com/wolfman30/vetcare-platform/internal/events"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

const consumerName = "email-lambda"

// consumer turns an SQS batch of booking envelopes into notification emails.
type consumer struct {
	handler domainevents.DeliveryHandler
	logger  *logging.Logger
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component(consumerName)
	ctx := context.Background()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	notifier := bootstrap.BuildNotifier(cfg, bootstrap.BuildEmailSender(cfg, awsCfg, logger), nil, logger)

	var handler domainevents.DeliveryHandler = notifier
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store := domainevents.NewProcessedStore(pool)
		notifier.WithSentLog(store)
		handler = domainevents.NewIdempotentHandler(consumerName, store, notifier, logger)
	} else {
		logger.Warn("DATABASE_URL not set; send records are kept per Lambda container only")
	}

	c := consumer{handler: handler, logger: logger}
	lambda.Start(c.handle)
}

// handle reports failed records individually so SQS only redrives those.
// Undecodable bodies are dropped; retrying them cannot succeed.
func (c consumer) handle(ctx context.Context, evt events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, record := range evt.Records {
		env, err := domainevents.DecodeEnvelope(record.Body)
		if err != nil {
			c.logger.Error("dropping malformed message", "message_id", record.MessageId, "error", err)
			continue
		}
		if err := c.handler.Handle(ctx, env.Entry()); err != nil {
			c.logger.Error("notification failed", "message_id", record.MessageId, "event_id", env.EventID, "type", env.EventType, "error", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return resp, nil
}
