// Package s3tape implements tape.Device over an S3 bucket, treating a
// tape image as one object: writes go through a multipart upload (tape
// I/O is inherently sequential, which multipart upload's part-ordering
// requirement matches naturally), reads use ranged GetObject calls keyed
// off the caller's Seek position.
package s3tape

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const minPartSize = 5 * 1024 * 1024 // S3 multipart minimum, except the final part

// Device is a tape.Device backed by one S3 object per virtual tape.
type Device struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string

	uploadID *string
	partNum  int32
	parts    []types.CompletedPart
	pending  bytes.Buffer

	readPos int64
}

// Open prepares a Device for bucket/key. The object is created lazily on
// the first Write; Read works against whatever already exists in the
// bucket (a previously completed backup image).
func Open(ctx context.Context, client *s3.Client, bucket, key string) *Device {
	return &Device{ctx: ctx, client: client, bucket: bucket, key: key}
}

func (d *Device) Write(p []byte) (int, error) {
	if d.uploadID == nil {
		out, err := d.client.CreateMultipartUpload(d.ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(d.key),
		})
		if err != nil {
			return 0, fmt.Errorf("s3tape: create multipart upload: %w", err)
		}
		d.uploadID = out.UploadId
	}
	d.pending.Write(p)
	for d.pending.Len() >= minPartSize {
		if err := d.flushPart(d.pending.Next(minPartSize), false); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (d *Device) flushPart(data []byte, final bool) error {
	if len(data) == 0 && !final {
		return nil
	}
	d.partNum++
	out, err := d.client.UploadPart(d.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(d.bucket),
		Key:        aws.String(d.key),
		UploadId:   d.uploadID,
		PartNumber: aws.Int32(d.partNum),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3tape: upload part %d: %w", d.partNum, err)
	}
	d.parts = append(d.parts, types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(d.partNum)})
	return nil
}

// Flush completes the multipart upload, committing any buffered tail
// bytes as the final part.
func (d *Device) Flush() error {
	if d.uploadID == nil {
		return nil
	}
	if d.pending.Len() > 0 {
		if err := d.flushPart(d.pending.Bytes(), true); err != nil {
			return err
		}
		d.pending.Reset()
	}
	_, err := d.client.CompleteMultipartUpload(d.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(d.bucket),
		Key:      aws.String(d.key),
		UploadId: d.uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: d.parts,
		},
	})
	if err != nil {
		return fmt.Errorf("s3tape: complete multipart upload: %w", err)
	}
	return nil
}

func (d *Device) Read(p []byte) (int, error) {
	rng := fmt.Sprintf("bytes=%d-%d", d.readPos, d.readPos+int64(len(p))-1)
	out, err := d.client.GetObject(d.ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return 0, fmt.Errorf("s3tape: get object range %s: %w", rng, err)
	}
	defer out.Body.Close()
	n, err := io.ReadFull(out.Body, p)
	d.readPos += int64(n)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// Seek repositions the read cursor; it has no effect on writes, which
// are always sequential/append-only per the multipart protocol.
func (d *Device) Seek(offset int64) error {
	d.readPos = offset
	return nil
}

func (d *Device) Close() error { return nil }
