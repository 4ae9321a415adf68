package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/datagate/datagate/internal/ingestion"
)

type fakePutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func testRun() ingestion.RunResult {
	return ingestion.RunResult{
		RunID:     "run-1",
		Adapter:   "techcrunch",
		State:     ingestion.StateDone,
		Success:   true,
		Succeeded: 3,
		StartedAt: time.Date(2025, 4, 5, 6, 7, 8, 0, time.UTC),
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"runs", "runs/techcrunch/20250405T060708Z-run-1.json"},
		{"/runs/", "runs/techcrunch/20250405T060708Z-run-1.json"},
		{"", "techcrunch/20250405T060708Z-run-1.json"},
	}
	for _, tt := range tests {
		a := NewS3ArchiverWithClient(&fakePutter{}, "bucket", tt.prefix)
		if got := a.Key(testRun()); got != tt.want {
			t.Errorf("Key(prefix=%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestArchiveRun(t *testing.T) {
	put := &fakePutter{}
	a := NewS3ArchiverWithClient(put, "reports", "runs")
	if err := a.ArchiveRun(context.Background(), testRun()); err != nil {
		t.Fatalf("ArchiveRun: %v", err)
	}
	if put.bucket != "reports" || put.key != "runs/techcrunch/20250405T060708Z-run-1.json" {
		t.Errorf("wrote s3://%s/%s", put.bucket, put.key)
	}
	if put.contentType != "application/json" {
		t.Errorf("content type = %q", put.contentType)
	}
	var decoded map[string]any
	if err := json.Unmarshal(put.body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded["state"] != "done" || decoded["items_succeeded"] != float64(3) {
		t.Errorf("unexpected body: %s", put.body)
	}
}

func TestArchiveRunError(t *testing.T) {
	a := NewS3ArchiverWithClient(&fakePutter{err: errors.New("access denied")}, "reports", "")
	if err := a.ArchiveRun(context.Background(), testRun()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewS3ArchiverRequiresBucket(t *testing.T) {
	if _, err := NewS3Archiver(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
