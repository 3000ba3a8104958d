package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/namespace"
	"github.com/radium-data/radium/pkg/notification"
	notifmem "github.com/radium-data/radium/pkg/notification/memory"
	"github.com/radium-data/radium/pkg/notification/mqtt"
	"github.com/radium-data/radium/pkg/principal"
	principalBadger "github.com/radium-data/radium/pkg/principal/badger"
	principalMemory "github.com/radium-data/radium/pkg/principal/memory"
	"github.com/radium-data/radium/pkg/store/blob"
	blobFs "github.com/radium-data/radium/pkg/store/blob/fs"
	blobMemory "github.com/radium-data/radium/pkg/store/blob/memory"
	blobS3 "github.com/radium-data/radium/pkg/store/blob/s3"
	"github.com/radium-data/radium/pkg/store/event"
	eventBadger "github.com/radium-data/radium/pkg/store/event/badger"
	eventMemory "github.com/radium-data/radium/pkg/store/event/memory"
	"github.com/radium-data/radium/pkg/store/node"
	nodeBadger "github.com/radium-data/radium/pkg/store/node/badger"
	nodeMemory "github.com/radium-data/radium/pkg/store/node/memory"
)

// badgerOptions is the shared shape of the BadgerDB store sections.
type badgerOptions struct {
	DBPath           string `mapstructure:"db_path"`
	InMemory         bool   `mapstructure:"in_memory"`
	BlockCacheSizeMB int64  `mapstructure:"block_cache_mb"`
	IndexCacheSizeMB int64  `mapstructure:"index_cache_mb"`
}

func decodeBadgerOptions(options map[string]any) (badgerOptions, error) {
	var opts badgerOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return opts, fmt.Errorf("failed to decode badger options: %w", err)
	}
	if opts.DBPath == "" && !opts.InMemory {
		return opts, fmt.Errorf("db_path is required")
	}
	return opts, nil
}

// CreateNodeStore creates a tree-node store based on configuration.
//
// Supported types:
//   - "memory": in-memory storage, ephemeral
//   - "badger": BadgerDB storage, persistent
func CreateNodeStore(ctx context.Context, cfg *NodeConfig) (node.Store, error) {
	switch cfg.Type {
	case "memory":
		return nodeMemory.NewMemoryNodeStoreWithDefaults(), nil
	case "badger":
		opts, err := decodeBadgerOptions(cfg.Badger)
		if err != nil {
			return nil, fmt.Errorf("badger node store: %w", err)
		}
		return nodeBadger.NewBadgerNodeStore(ctx, nodeBadger.BadgerNodeStoreConfig{
			DBPath:           opts.DBPath,
			InMemory:         opts.InMemory,
			BlockCacheSizeMB: opts.BlockCacheSizeMB,
			IndexCacheSizeMB: opts.IndexCacheSizeMB,
		})
	default:
		return nil, fmt.Errorf("unknown node store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// CreateEventStore creates an event store based on configuration.
//
// Supported types:
//   - "memory": in-memory storage, ephemeral
//   - "badger": BadgerDB storage, persistent
func CreateEventStore(ctx context.Context, cfg *EventConfig) (event.Store, error) {
	switch cfg.Type {
	case "memory":
		return eventMemory.NewMemoryEventStoreWithDefaults(), nil
	case "badger":
		opts, err := decodeBadgerOptions(cfg.Badger)
		if err != nil {
			return nil, fmt.Errorf("badger event store: %w", err)
		}
		return eventBadger.NewBadgerEventStore(ctx, eventBadger.BadgerEventStoreConfig{
			DBPath:   opts.DBPath,
			InMemory: opts.InMemory,
		})
	default:
		return nil, fmt.Errorf("unknown event store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// CreatePrincipalStore creates a principal store based on configuration.
//
// Supported types:
//   - "memory": in-memory storage, ephemeral
//   - "badger": BadgerDB storage, persistent
func CreatePrincipalStore(ctx context.Context, cfg *PrincipalConfig) (principal.Store, error) {
	switch cfg.Type {
	case "memory":
		return principalMemory.NewMemoryPrincipalStoreWithDefaults(), nil
	case "badger":
		opts, err := decodeBadgerOptions(cfg.Badger)
		if err != nil {
			return nil, fmt.Errorf("badger principal store: %w", err)
		}
		return principalBadger.NewBadgerPrincipalStore(ctx, principalBadger.BadgerPrincipalStoreConfig{
			DBPath:   opts.DBPath,
			InMemory: opts.InMemory,
		})
	default:
		return nil, fmt.Errorf("unknown principal store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// CreateBlobStore creates a blob store based on configuration.
//
// Supported types:
//   - "memory": in-memory storage, ephemeral
//   - "filesystem": local filesystem storage
//   - "s3": Amazon S3 or compatible storage
func CreateBlobStore(ctx context.Context, cfg *BlobConfig) (blob.Store, error) {
	switch cfg.Type {
	case "memory":
		return blobMemory.NewMemoryBlobStoreWithDefaults(), nil
	case "filesystem":
		return createFilesystemBlobStore(cfg.Filesystem)
	case "s3":
		return createS3BlobStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob store type: %q (supported: memory, filesystem, s3)", cfg.Type)
	}
}

// createFilesystemBlobStore creates a filesystem-based blob store.
func createFilesystemBlobStore(options map[string]any) (blob.Store, error) {
	type FilesystemBlobStoreOptions struct {
		Path string `mapstructure:"path"`
	}

	var storeOpts FilesystemBlobStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem blob store options: %w", err)
	}

	if storeOpts.Path == "" {
		return nil, fmt.Errorf("filesystem blob store: path is required")
	}

	store, err := blobFs.NewFSBlobStore(blobFs.FSBlobStoreConfig{RootDir: storeOpts.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem blob store: %w", err)
	}

	return store, nil
}

// createS3BlobStore creates an S3-based blob store.
func createS3BlobStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	type S3BlobStoreOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeOpts S3BlobStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 blob store options: %w", err)
	}

	if storeOpts.Bucket == "" {
		return nil, fmt.Errorf("S3 blob store: bucket is required")
	}
	if storeOpts.Region == "" {
		return nil, fmt.Errorf("S3 blob store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeOpts.Region))

	// Custom endpoint support for MinIO, Localstack, etc.
	if storeOpts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeOpts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeOpts.AccessKeyID != "" && storeOpts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeOpts.AccessKeyID,
			storeOpts.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeOpts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility
		if storeOpts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := blobS3.NewS3BlobStore(ctx, blobS3.S3BlobStoreConfig{
		Client:    client,
		Bucket:    storeOpts.Bucket,
		KeyPrefix: storeOpts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 blob store: %w", err)
	}

	logger.Info("S3 blob store initialized: bucket=%s, region=%s, prefix=%s",
		storeOpts.Bucket, storeOpts.Region, storeOpts.KeyPrefix)

	return store, nil
}

// CreatePublisher creates the notification publisher based on configuration.
//
// With the broker disabled, notifications stay in the event store and go to
// an in-process publisher, which keeps single-node deployments working
// without an MQTT broker.
func CreatePublisher(cfg *BrokerConfig) (notification.Publisher, error) {
	if !cfg.Enabled {
		logger.Info("Broker disabled, using in-process publisher")
		return notifmem.NewMemoryPublisher(), nil
	}

	pub, err := mqtt.NewMQTTPublisher(mqtt.MQTTPublisherConfig{
		BrokerURL:      cfg.URL,
		ClientID:       cfg.ClientID,
		Username:       cfg.Username,
		Password:       cfg.Password,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker %s: %w", cfg.URL, err)
	}

	logger.Info("Connected to broker %s as %s", cfg.URL, cfg.ClientID)
	return pub, nil
}

// NamespaceOptions converts the namespace section into service options.
func NamespaceOptions(cfg *NamespaceConfig) namespace.Options {
	return namespace.Options{
		Scheme:       cfg.Scheme,
		MetaCreateTS: cfg.Meta.CreateTS,
		MetaModifyTS: cfg.Meta.ModifyTS,
		MetaMimetype: cfg.Meta.Mimetype,
		MetaSize:     cfg.Meta.Size,
		ChunkSize:    cfg.ChunkSize,
		Compress:     cfg.Compress,
		SystemSender: cfg.SystemSender,
	}
}
