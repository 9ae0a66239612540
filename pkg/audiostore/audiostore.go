// Package audiostore serves narration audio out of an S3-compatible
// bucket through short-lived presigned URLs.
package audiostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/asmrbible/backend/internal/bible"
)

// DefaultURLExpiry is how long a presigned audio link stays valid.
const DefaultURLExpiry = 1 * time.Hour

// MinIOClient wraps the MinIO client for narration audio storage
type MinIOClient struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOClient creates a new MinIO client and ensures bucket exists
func NewMinIOClient(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	mc := &MinIOClient{
		client:     client,
		bucketName: bucketName,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mc.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return mc, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// ObjectName maps a narration position to its object path. Chapter
// audio lives at chapter{n}/chapter{n}.mp3; verse audio is one file
// per verse under the same chapter prefix.
func ObjectName(voice, bookID string, chapter int, verse *int) string {
	gcsBookID := bible.BucketBookID(bookID)
	if verse != nil {
		return fmt.Sprintf("audio/%s/%s/chapter%d/%d.mp3", voice, gcsBookID, chapter, *verse)
	}
	return fmt.Sprintf("audio/%s/%s/chapter%d/chapter%d.mp3", voice, gcsBookID, chapter, chapter)
}

// AudioURL returns a presigned link for one chapter or verse recording.
func (m *MinIOClient) AudioURL(ctx context.Context, voice, bookID string, chapter int, verse *int, expiry time.Duration) (string, error) {
	if !bible.IsValidVoice(voice) {
		return "", fmt.Errorf("invalid voice: %s", voice)
	}
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}

	objectName := ObjectName(voice, bookID, chapter, verse)
	url, err := m.client.PresignedGetObject(ctx, m.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return url.String(), nil
}

// Exists reports whether the recording object is actually in the bucket.
func (m *MinIOClient) Exists(ctx context.Context, voice, bookID string, chapter int, verse *int) (bool, error) {
	objectName := ObjectName(voice, bookID, chapter, verse)
	_, err := m.client.StatObject(ctx, m.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		var respErr minio.ErrorResponse
		if errors.As(err, &respErr) && respErr.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// UploadRecording stores one narration file, for ingest tooling.
func (m *MinIOClient) UploadRecording(ctx context.Context, voice, bookID string, chapter int, verse *int, data []byte) (string, error) {
	if !bible.IsValidVoice(voice) {
		return "", fmt.Errorf("invalid voice: %s", voice)
	}

	objectName := ObjectName(voice, bookID, chapter, verse)
	reader := bytes.NewReader(data)
	_, err := m.client.PutObject(
		ctx,
		m.bucketName,
		objectName,
		reader,
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "audio/mpeg",
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}

	return objectName, nil
}

// DeleteRecording removes one narration file.
func (m *MinIOClient) DeleteRecording(ctx context.Context, voice, bookID string, chapter int, verse *int) error {
	objectName := ObjectName(voice, bookID, chapter, verse)
	err := m.client.RemoveObject(ctx, m.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
