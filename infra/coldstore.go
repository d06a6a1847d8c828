package infra

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/helixbio/gva-annotation-orchestrator/config"
)

type RetrievalTier string

const (
	TierExpedited RetrievalTier = "Expedited"
	TierStandard  RetrievalTier = "Standard"
)

// RetrievalTiers is the escalation order for restore requests: fastest
// first, falling back on capacity errors only.
var RetrievalTiers = []RetrievalTier{TierExpedited, TierStandard}

// ErrInsufficientCapacity classifies the cold tier's "no capacity at this
// tier right now" response. It is domain-expected and drives tier fallback;
// all other retrieval errors propagate as genuine failures.
var ErrInsufficientCapacity = errors.New("insufficient retrieval capacity at requested tier")

type ColdStoreClient struct {
	client      *s3.Client
	vaultBucket string
	restoreDays int32
}

func InitColdStoreClient(cfg *config.EnvConfig) *ColdStoreClient {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.ColdArchive.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.ColdArchive.AccessKey, cfg.ColdArchive.SecretKey, ""),
		),
	)
	if err != nil {
		log.Fatalf("Cold archive client configuration failed: %v", err)
	}

	return &ColdStoreClient{
		client:      s3.NewFromConfig(awsCfg),
		vaultBucket: cfg.ColdArchive.VaultBucket,
		restoreDays: int32(cfg.ColdArchive.RestoreDays),
	}
}

// InitiateRetrieval asks the cold tier to start restoring one archived
// object. Completion is signaled asynchronously through the restore-completed
// queue; this call only starts the retrieval.
func (c *ColdStoreClient) InitiateRetrieval(ctx context.Context, archiveRef, description string, tier RetrievalTier) error {
	_, err := c.client.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(c.vaultBucket),
		Key:    aws.String(archiveRef),
		RestoreRequest: &s3types.RestoreRequest{
			Days:        aws.Int32(c.restoreDays),
			Description: aws.String(description),
			GlacierJobParameters: &s3types.GlacierJobParameters{
				Tier: s3types.Tier(tier),
			},
		},
	})
	if err != nil {
		if isCapacityError(err) {
			return fmt.Errorf("%w: %s", ErrInsufficientCapacity, tier)
		}
		return fmt.Errorf("failed to initiate %s retrieval for %s: %w", tier, archiveRef, err)
	}
	return nil
}

func isCapacityError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "GlacierExpeditedRetrievalNotAvailable", "InsufficientCapacity", "InsufficientCapacityException":
		return true
	}
	return false
}
