package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	qiniustorage "github.com/qiniu/go-sdk/v7/storage"
	"github.com/weiwangfds/mailagent/internal/database"
)

// qiniuProvider 七牛云Kodo提供商实现
type qiniuProvider struct {
	mac        *qbox.Mac
	bucketName string
	region     *qiniustorage.Region
	config     *database.StorageConfig
}

// newQiniuProvider 创建七牛云Kodo提供商实例
func newQiniuProvider(cfg *database.StorageConfig) (*qiniuProvider, error) {
	mac := qbox.NewMac(cfg.AccessKey, cfg.SecretKey)

	region, err := qiniustorage.GetRegion(cfg.AccessKey, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	return &qiniuProvider{
		mac:        mac,
		bucketName: cfg.Bucket,
		region:     region,
		config:     cfg,
	}, nil
}

// UploadFile 上传文件到七牛云Kodo
func (p *qiniuProvider) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	putPolicy := qiniustorage.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucketName, objectKey),
	}
	upToken := putPolicy.UploadToken(p.mac)

	cfg := qiniustorage.Config{
		Region:        p.region,
		UseHTTPS:      true,
		UseCdnDomains: false,
	}

	formUploader := qiniustorage.NewFormUploader(&cfg)
	ret := qiniustorage.PutRet{}

	putExtra := qiniustorage.PutExtra{}
	if contentType != "" {
		putExtra.MimeType = contentType
	}

	err := formUploader.Put(context.Background(), &ret, upToken, objectKey, reader, -1, &putExtra)
	if err != nil {
		return fmt.Errorf("failed to upload file to qiniu kodo: %w", err)
	}
	return nil
}

// DeleteFile 删除七牛云Kodo文件
func (p *qiniuProvider) DeleteFile(objectKey string) error {
	bucketManager := qiniustorage.NewBucketManager(p.mac, &qiniustorage.Config{
		Region: p.region,
	})

	if err := bucketManager.Delete(p.bucketName, objectKey); err != nil {
		return fmt.Errorf("failed to delete file from qiniu kodo: %w", err)
	}
	return nil
}

// FileExists 检查文件是否存在
func (p *qiniuProvider) FileExists(objectKey string) (bool, error) {
	bucketManager := qiniustorage.NewBucketManager(p.mac, &qiniustorage.Config{
		Region: p.region,
	})

	_, err := bucketManager.Stat(p.bucketName, objectKey)
	if err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence in qiniu kodo: %w", err)
	}
	return true, nil
}

// TestConnection 测试连接，列出存储桶中的一个文件验证凭证
func (p *qiniuProvider) TestConnection() error {
	bucketManager := qiniustorage.NewBucketManager(p.mac, &qiniustorage.Config{
		Region: p.region,
	})

	_, _, _, _, err := bucketManager.ListFiles(p.bucketName, "", "", "", 1)
	if err != nil {
		return fmt.Errorf("failed to test qiniu kodo connection: %w", err)
	}
	return nil
}
