// Copyright 2025 The Groundwork Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/groundwork-run/groundwork/pkg/stack"
)

// s3API is the subset of the S3 client the store uses.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store persists snapshots in an S3 bucket, one object per stack.
// Locking relies on conditional writes (If-None-Match), so concurrent runs
// from different machines fail fast instead of clobbering each other's
// state.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store creates a store over an existing client. prefix may be empty.
func NewS3Store(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// NewS3StoreFromConfig creates a store using the ambient AWS credential
// chain (environment, shared config, instance role).
func NewS3StoreFromConfig(ctx context.Context, bucket, prefix string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3Store(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (s *S3Store) snapshotKey(stackName string) string {
	return path.Join(s.prefix, stackName+".json")
}

func (s *S3Store) lockKey(stackName string) string {
	return path.Join(s.prefix, stackName+".lock")
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, stackName string) (*stack.Snapshot, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.snapshotKey(stackName)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("stack %q: %w", stackName, ErrNotFound)
		}
		return nil, fmt.Errorf("get snapshot for %q: %w", stackName, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot for %q: %w", stackName, err)
	}

	var snapshot stack.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot for %q: %w", stackName, err)
	}
	return &snapshot, nil
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, snapshot *stack.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot for %q: %w", snapshot.Stack, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.snapshotKey(snapshot.Stack)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put snapshot for %q: %w", snapshot.Stack, err)
	}
	return nil
}

// Lock implements Store using a conditional put: the lock object is created
// only if it does not already exist.
func (s *S3Store) Lock(ctx context.Context, stackName, holder string) (UnlockFunc, error) {
	key := s.lockKey(stackName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(holder + "\n"),
		ContentType: aws.String("text/plain"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			lockErr := &LockedStateError{Stack: stackName}
			if out, getErr := s.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			}); getErr == nil {
				body, _ := io.ReadAll(out.Body)
				out.Body.Close()
				lockErr.Holder = strings.TrimSpace(string(body))
			}
			return nil, lockErr
		}
		return nil, fmt.Errorf("acquire lock for %q: %w", stackName, err)
	}

	return func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("release lock for %q: %w", stackName, err)
		}
		return nil
	}, nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}
