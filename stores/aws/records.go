package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"bindiff/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

const maxMergeAttempts = 5

// ObjectAPI is the subset of the S3 client used by the store.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type recordStore struct {
	s3Client ObjectAPI
	bucket   string // Name of the S3 bucket
}

// NewRecordStore loads the default AWS configuration and stores records in bucketName.
func NewRecordStore(ctx context.Context, bucketName string) (core.RecordStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewRecordStoreWithClient(s3.NewFromConfig(cfg), bucketName), nil
}

func NewRecordStoreWithClient(client ObjectAPI, bucketName string) core.RecordStore {
	return &recordStore{
		s3Client: client,
		bucket:   bucketName,
	}
}

func objectKey(id int64) string {
	return "bindata/" + strconv.FormatInt(id, 10) + ".json"
}

func (s *recordStore) FindID(ctx context.Context, id int64) (*core.Record, error) {
	record, _, err := s.get(ctx, id)
	return record, err
}

// get returns the stored record together with the ETag of its object.
func (s *recordStore) get(ctx context.Context, id int64) (*core.Record, *string, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("record with id %d: %w", id, core.ErrRecordNotFound)
		}
		return nil, nil, fmt.Errorf("failed to get record with id %d: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read record data: %w", err)
	}

	var record core.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, nil, fmt.Errorf("failed to decode record %d: %w", id, err)
	}
	record.ID = id
	return &record, resp.ETag, nil
}

func (s *recordStore) Save(ctx context.Context, records ...core.Record) (int, error) {
	for i, record := range records {
		if err := s.merge(ctx, record); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

// merge reads the stored object, applies update and writes it back only if
// the object is unchanged since the read. Lost races are retried.
func (s *recordStore) merge(ctx context.Context, update core.Record) error {
	for attempt := 1; ; attempt++ {
		record, etag, err := s.get(ctx, update.ID)
		switch {
		case errors.Is(err, core.ErrRecordNotFound):
			record = &core.Record{ID: update.ID}
		case err != nil:
			return err
		}
		record.Merge(update)

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", update.ID, err)
		}
		input := &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(objectKey(update.ID)),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		}
		if etag != nil {
			input.IfMatch = etag
		} else {
			input.IfNoneMatch = aws.String("*")
		}

		_, err = s.s3Client.PutObject(ctx, input)
		if err == nil {
			return nil
		}
		if !isConflict(err) || attempt == maxMergeAttempts {
			return fmt.Errorf("failed to upload record %d: %w", update.ID, err)
		}
		logrus.WithFields(logrus.Fields{
			"record_id": update.ID,
			"attempt":   attempt,
		}).Debug("Record changed concurrently, retrying")
	}
}

type httpStatusError interface {
	HTTPStatusCode() int
}

func httpStatus(err error) int {
	var e httpStatusError
	if errors.As(err, &e) {
		return e.HTTPStatusCode()
	}
	return 0
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound) || httpStatus(err) == http.StatusNotFound
}

// isConflict reports a failed IfMatch/IfNoneMatch precondition.
func isConflict(err error) bool {
	status := httpStatus(err)
	return status == http.StatusPreconditionFailed || status == http.StatusConflict
}
