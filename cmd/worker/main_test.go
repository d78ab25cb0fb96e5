package main

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/vetcare-platform/internal/config"
	"github.com/wolfman30/vetcare-platform/internal/events"
	"github.com/wolfman30/vetcare-platform/internal/notify"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

func TestDeliveryHandlerPrefersSQS(t *testing.T) {
	cfg := &appconfig.Config{NotificationQueueURL: "http://localhost:4566/000000000000/notify", EmailProvider: "stub"}
	awsCfg := &aws.Config{Region: "ap-south-1"}

	h := deliveryHandler(cfg, awsCfg, nil, nil, logging.New("error"))
	if _, ok := h.(*events.SQSPublisher); !ok {
		t.Fatalf("expected SQS publisher, got %T", h)
	}
}

func TestDeliveryHandlerFallsBackToInProcessEmail(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: "stub"}

	h := deliveryHandler(cfg, nil, nil, nil, logging.New("error"))
	if _, ok := h.(*notify.Service); !ok {
		t.Fatalf("expected in-process email handler, got %T", h)
	}
}
