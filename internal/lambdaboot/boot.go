// Package lambdaboot provides the Lambda cold-start bootstrap for the hosted
// contribution site: AWS config, the DynamoDB counter cache, the S3 photo
// archive, the backend base URL from SSM and startup logging.
//
// Resource names come from config.Config, so the same SMARTDOG_* variables
// configure the CLI, the local web server and the Lambda.
package lambdaboot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/archive"
	"github.com/smartdog/pet-contribution/internal/logging"
	"github.com/smartdog/pet-contribution/internal/store"
)

// AWSClients holds the core AWS SDK clients used by the Lambda.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with an SSM client.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitDynamoOptional creates the DynamoDB store when a table is configured.
// Returns nil (with a warning) otherwise.
func InitDynamoOptional(cfg aws.Config, table string) *store.Dynamo {
	if table == "" {
		log.Warn().Msg("DynamoDB table not set, counter cache is in memory only")
		return nil
	}
	return store.NewDynamo(dynamodb.NewFromConfig(cfg), table)
}

// InitArchiveOptional creates the S3 photo archiver when a bucket is
// configured. Returns nil (with a warning) otherwise.
func InitArchiveOptional(cfg aws.Config, bucket string) *archive.Archiver {
	if bucket == "" {
		log.Warn().Msg("Archive bucket not set, contributions are not archived")
		return nil
	}
	return archive.New(s3.NewFromConfig(cfg), bucket)
}

// InitDraftsOptional creates the S3 store for photos kept between a failed
// attempt and its retry, in the archive bucket. Returns nil when no bucket is
// configured.
func InitDraftsOptional(cfg aws.Config, bucket string, ttl time.Duration) *archive.Drafts {
	if bucket == "" {
		return nil
	}
	return archive.NewDrafts(s3.NewFromConfig(cfg), bucket, ttl)
}

// parameterGetter is the subset of *ssm.Client used to read parameters.
type parameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadBaseURL reads the backend base URL from SSM Parameter Store when
// param is set, falling back to fallback on any error.
func LoadBaseURL(ctx context.Context, client parameterGetter, param, fallback string) string {
	if param == "" {
		return fallback
	}
	ssmStart := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &param,
		WithDecryption: aws.Bool(false),
	})
	if err != nil || result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		log.Warn().Err(err).Str("param", param).Str("fallback", fallback).Msg("Backend base URL not found in SSM, using configured value")
		return fallback
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(ssmStart)).Msg("Backend base URL loaded from SSM")
	return *result.Parameter.Value
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
