// Package archive 将排班运行的输入/输出副本写入 S3 兼容存储。
// 归档是尽力而为的旁路，失败不影响主流程。
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sourav-maji/RosterPro/config"
)

// Store 运行记录归档接口
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Key 生成归档对象键：<prefix>/<tenant>/<yyyy-mm-dd>/<run_id>.json
func Key(prefix, tenantID, runID string, at time.Time) string {
	return path.Join(prefix, tenantID, at.UTC().Format("2006-01-02"), runID+".json")
}

// ── S3 实现 ──

// S3Store 单 bucket 的 S3 归档
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store 按配置创建 S3 客户端；endpoint 非空时可指向 MinIO 等兼容服务
func NewS3Store(ctx context.Context, cfg *config.ArchiveConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive.bucket 不能为空")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	// 显式密钥优先；未配置时走默认凭证链（环境变量、共享配置、实例角色）
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("加载 AWS 配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Put 写入 JSON 对象
func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("写入归档对象 %s 失败: %w", key, err)
	}
	return nil
}

// Nop 未启用归档时使用
type Nop struct{}

// Put 不做任何事
func (Nop) Put(context.Context, string, []byte) error { return nil }
