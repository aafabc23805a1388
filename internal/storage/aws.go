// Package storage archives follow-up sweep reports to AWS: a summary item
// per run in DynamoDB and the full report as JSON in S3.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/outreach-tracker/internal/domain"
)

const reportTTL = 90 * 24 * time.Hour

// DynamoAPI is the subset of the DynamoDB client used here.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SweepArchive stores sweep reports. Either backend may be left unset.
type SweepArchive struct {
	dynamoDB  DynamoAPI
	s3Client  S3API
	tableName string
	bucket    string
}

// DynamoDBItem is the per-run summary row.
type DynamoDBItem struct {
	PK        string             `dynamodbav:"PK"`
	SK        string             `dynamodbav:"SK"`
	Report    domain.SweepReport `dynamodbav:"Report"`
	S3Key     string             `dynamodbav:"S3Key,omitempty"`
	Timestamp string             `dynamodbav:"Timestamp"`
	TTL       int64              `dynamodbav:"TTL,omitempty"`
}

// NewSweepArchive loads the default AWS config for region.
func NewSweepArchive(ctx context.Context, tableName, bucket, region string) (*SweepArchive, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	var (
		ddb DynamoAPI
		s3c S3API
	)
	if tableName != "" {
		ddb = dynamodb.NewFromConfig(cfg)
	}
	if bucket != "" {
		s3c = s3.NewFromConfig(cfg)
	}
	return NewSweepArchiveWithClients(ddb, s3c, tableName, bucket), nil
}

func NewSweepArchiveWithClients(ddb DynamoAPI, s3c S3API, tableName, bucket string) *SweepArchive {
	return &SweepArchive{dynamoDB: ddb, s3Client: s3c, tableName: tableName, bucket: bucket}
}

// ReportKey is the S3 object key of a report.
func ReportKey(r *domain.SweepReport) string {
	return fmt.Sprintf("sweeps/%s/%s.json", r.StartedAt.UTC().Format("2006/01/02"), r.RunID)
}

// ArchiveSweep writes the report to S3 and then its summary to DynamoDB.
func (a *SweepArchive) ArchiveSweep(ctx context.Context, r *domain.SweepReport) error {
	var key string
	if a.s3Client != nil {
		key = ReportKey(r)
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("putting object to S3: %w", err)
		}
	}

	if a.dynamoDB != nil {
		item := DynamoDBItem{
			PK:        "SWEEP",
			SK:        r.StartedAt.UTC().Format(time.RFC3339Nano) + "#" + r.RunID,
			Report:    *r,
			S3Key:     key,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			TTL:       time.Now().Add(reportTTL).Unix(),
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("marshaling item: %w", err)
		}
		_, err = a.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(a.tableName),
			Item:      av,
		})
		if err != nil {
			return fmt.Errorf("putting item to DynamoDB: %w", err)
		}
	}
	return nil
}
