// Package main provides the Lambda entry point for the hosted contribution
// site. It serves the same pages as smartdog-web behind an API Gateway HTTP
// API (payload format 2.0).
//
// The counter cache and the contribution receipts live in DynamoDB, the
// contributed photos are archived to S3, and submission metrics are written
// to stdout as CloudWatch EMF documents.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/archive"
	"github.com/smartdog/pet-contribution/internal/backend"
	"github.com/smartdog/pet-contribution/internal/config"
	"github.com/smartdog/pet-contribution/internal/counter"
	"github.com/smartdog/pet-contribution/internal/flow"
	"github.com/smartdog/pet-contribution/internal/lambdaboot"
	"github.com/smartdog/pet-contribution/internal/logging"
	"github.com/smartdog/pet-contribution/internal/metrics"
	"github.com/smartdog/pet-contribution/internal/roadmap"
	"github.com/smartdog/pet-contribution/internal/store"
	"github.com/smartdog/pet-contribution/internal/web"
)

var coldStart = true

var handler http.Handler

func init() {
	initStart := time.Now()
	cfg, err := config.Load(config.New(), "")
	if err != nil {
		logging.InitJSON("")
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.InitJSON(cfg.LogLevel)

	variant, err := flow.LookupVariant(cfg.Variant)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid variant")
	}

	aws := lambdaboot.InitAWS()
	baseURL := lambdaboot.LoadBaseURL(context.Background(), aws.SSM, cfg.SSMBaseURLParam, cfg.BaseURL)
	dynamo := lambdaboot.InitDynamoOptional(aws.Config, cfg.DynamoTable)
	archiver := lambdaboot.InitArchiveOptional(aws.Config, cfg.ArchiveBucket)

	// A warm container may not serve the retry, so drafts go to S3 when
	// there is a bucket.
	var drafts web.Drafts
	if d := lambdaboot.InitDraftsOptional(aws.Config, cfg.ArchiveBucket, web.DefaultDraftTTL); d != nil {
		drafts = d
	}

	var kv store.KV = store.NewMemory()
	if dynamo != nil {
		kv = dynamo
	}

	client := backend.NewClient(baseURL, cfg.HTTPTimeout, backend.WithEndpoints(backend.Endpoints{
		Submit:    cfg.SubmitPath,
		Count:     cfg.CountPath,
		Increment: cfg.IncrementPath,
	}))
	emitter := metrics.Emitter{}

	srv, err := web.New(web.Options{
		Submitter:      client,
		Notifier:       client,
		Counter:        counter.NewService(client, kv, cfg.CounterDefault),
		Sink:           flow.Sinks{flow.LogSink{}, emitter},
		Theme:          roadmap.LookupTheme(cfg.Theme),
		Variant:        variant,
		OnSuccess:      recordContribution(dynamo, archiver),
		Observer:       emitter,
		RequestMetrics: true,
		WaitBackground: true,
		Drafts:         drafts,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build web handler")
	}
	handler = srv.Handler()

	startup := lambdaboot.StartupLog("smartdog-lambda", initStart).
		Endpoint("backend", baseURL).
		Config("variant", variant.Name).
		Config("theme", cfg.Theme).
		Feature("dynamo", dynamo != nil).
		Feature("archive", archiver != nil).
		Feature("s3Drafts", drafts != nil)
	if cfg.SSMBaseURLParam != "" {
		startup.SSMParam("baseUrl", cfg.SSMBaseURLParam)
	}
	if dynamo != nil {
		startup.Store("dynamo", cfg.DynamoTable)
	}
	if archiver != nil {
		startup.Store("archive", archiver.Bucket())
	}
	startup.Log()
}

// recordContribution stores the receipt in DynamoDB and archives the photos
// to S3. Either resource may be absent.
func recordContribution(dynamo *store.Dynamo, archiver *archive.Archiver) func(context.Context, web.Contribution) error {
	return func(ctx context.Context, c web.Contribution) error {
		receipt := c.Receipt(time.Now())
		var errs []error
		if dynamo != nil {
			if err := dynamo.AddReceipt(ctx, receipt); err != nil {
				errs = append(errs, err)
			}
		}
		if archiver != nil {
			if _, err := archiver.Archive(ctx, receipt, c.Photos); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func withColdStart(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if coldStart {
			coldStart = false
			log.Info().Str("function", "smartdog-lambda").Msg("Cold start, first invocation")
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	adapter := httpadapter.NewV2(withColdStart(handler))
	lambda.Start(adapter.ProxyWithContext)
}
