package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"docsearch-backend/internal/bootstrap"
	"docsearch-backend/internal/documents"
	"docsearch-backend/internal/ingest"
	"docsearch-backend/internal/shared/config"
	"docsearch-backend/internal/shared/metrics"
	"docsearch-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	if strings.TrimSpace(cfg.QueueURL) == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	concurrency := cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	log.Printf("worker started queue=%s concurrency=%d visibility=%ds", cfg.QueueURL, concurrency, cfg.QueueVisibilitySeconds)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(cfg.QueueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(cfg.QueueVisibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			log.Printf("receive message: %v", err)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(ctx, sqsClient, cfg.QueueURL, app.Pipeline, app.Reconciler, cfg.WorkerMaxReceives, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight messages", cfg.WorkerShutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(cfg.WorkerShutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight messages")
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type processor interface {
	Process(ctx context.Context, ref ingest.ObjectRef) error
}

type finalizer interface {
	MarkError(ctx context.Context, storageKey string) error
}

// handleMessage decides each message's fate. Malformed envelopes are deleted
// outright. Terminal failures mark the record error and delete the message.
// Transient failures leave the message for redelivery until the receive
// count reaches maxReceives, at which point the message is treated as
// poison: record marked error, message deleted.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc processor, fin finalizer, maxReceives int, msg sqstypes.Message) {
	metrics.IngestReceived.Inc()
	start := time.Now()
	defer func() { metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	// A panic must not take down the consumer; the message is left for
	// redelivery.
	defer func() {
		if r := recover(); r != nil {
			fields := baseFields(msg, "")
			fields["panic"] = fmt.Sprint(r)
			telemetry.Error("worker.ingest.panic", fields)
		}
	}()

	body := aws.ToString(msg.Body)
	refs, err := ingest.ParseEnvelope(body)
	if err != nil {
		fields := baseFields(msg, "")
		fields["body_len"] = len(body)
		fields["error"] = err.Error()
		telemetry.Error("worker.ingest.envelope_rejected", fields)
		if deleteMessage(ctx, client, queueURL, msg, "") {
			metrics.IngestDeletedUnprocessable.Inc()
		}
		return
	}

	allSettled := true
	allSucceeded := true
	for _, ref := range refs {
		err := proc.Process(ctx, ref)
		if err == nil {
			continue
		}
		allSucceeded = false
		if !settleFailure(ctx, fin, maxReceives, msg, ref, err) {
			allSettled = false
		}
	}

	if !allSettled {
		// Leave the message; the visibility timeout will redeliver it.
		return
	}
	if deleteMessage(ctx, client, queueURL, msg, "") && allSucceeded {
		telemetry.Info("worker.ingest.completed", baseFields(msg, ""))
		metrics.IngestCompleted.Inc()
	}
}

// settleFailure reports whether a failed record's fate is settled, meaning
// its error outcome is durably recorded. An unsettled record keeps the
// message on the queue.
func settleFailure(ctx context.Context, fin finalizer, maxReceives int, msg sqstypes.Message, ref ingest.ObjectRef, err error) bool {
	stage, class := ingest.Classify(err)
	fields := baseFields(msg, ref.Key)
	fields["stage"] = string(stage)
	fields["class"] = string(class)
	fields["error"] = err.Error()
	metrics.IngestFailed.WithLabelValues(string(stage), string(class)).Inc()

	if class == ingest.ClassTerminal {
		telemetry.Error("worker.ingest.terminal_failure", fields)
		return markError(ctx, fin, msg, ref.Key)
	}

	count := receiveCount(msg)
	if maxReceives > 0 && count >= maxReceives {
		fields["receive_count"] = count
		fields["max_receives"] = maxReceives
		telemetry.Error("worker.ingest.poison_terminated", fields)
		if markError(ctx, fin, msg, ref.Key) {
			metrics.IngestDeletedUnprocessable.Inc()
			return true
		}
		return false
	}

	telemetry.Warn("worker.ingest.transient_failure", fields)
	return false
}

// markError reports whether the error outcome is durably recorded. A missing
// record counts: there is nothing left to reconcile.
func markError(ctx context.Context, fin finalizer, msg sqstypes.Message, storageKey string) bool {
	err := fin.MarkError(ctx, storageKey)
	if err == nil || errors.Is(err, documents.ErrNotFound) {
		return true
	}
	fields := baseFields(msg, storageKey)
	fields["error"] = err.Error()
	telemetry.Error("worker.ingest.mark_error_failed", fields)
	return false
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, storageKey string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, storageKey)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.ingest.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, storageKey)
		fields["error"] = err.Error()
		telemetry.Error("worker.ingest.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, storageKey string) map[string]any {
	fields := map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(storageKey) != "" {
		fields["storage_key"] = storageKey
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
