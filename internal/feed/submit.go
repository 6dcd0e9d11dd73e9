package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/otel"
	"github.com/stacklok/photofeed/internal/telemetry"
)

const (
	// DefaultJPEGQuality is the quality images are re-encoded with before upload
	DefaultJPEGQuality = 80

	// maxImagePixels bounds the decoded size of a submitted image
	maxImagePixels = 50_000_000

	uploadFileName    = "photo.jpg"
	uploadContentType = "image/jpeg"
)

// Submitter stores new posts
type Submitter struct {
	client      backend.Client
	collection  string
	jpegQuality int

	metrics *telemetry.SubmissionMetrics
	tracer  trace.Tracer
	newKey  func() string
}

// SubmitterOption configures a Submitter
type SubmitterOption func(*Submitter)

// WithSubmitCollection sets the collection new posts are inserted into
func WithSubmitCollection(name string) SubmitterOption {
	return func(s *Submitter) {
		if name != "" {
			s.collection = name
		}
	}
}

// WithJPEGQuality sets the re-encoding quality (1 to 100)
func WithJPEGQuality(quality int) SubmitterOption {
	return func(s *Submitter) {
		if quality >= 1 && quality <= 100 {
			s.jpegQuality = quality
		}
	}
}

// WithSubmissionMetrics sets the submission metrics
func WithSubmissionMetrics(metrics *telemetry.SubmissionMetrics) SubmitterOption {
	return func(s *Submitter) {
		s.metrics = metrics
	}
}

// WithSubmitTracer sets the tracer for submission spans
func WithSubmitTracer(tracer trace.Tracer) SubmitterOption {
	return func(s *Submitter) {
		s.tracer = tracer
	}
}

// NewSubmitter creates a submitter writing through client
func NewSubmitter(client backend.Client, opts ...SubmitterOption) (*Submitter, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client is required")
	}

	s := &Submitter{
		client:      client,
		collection:  DefaultCollection,
		jpegQuality: DefaultJPEGQuality,
		newKey:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type submitOptions struct {
	idempotencyKey string
}

// SubmitOption configures a single submission
type SubmitOption func(*submitOptions)

// WithIdempotencyKey reuses the key of an earlier attempt, so a manual retry
// of a submission the server already stored is not stored twice
func WithIdempotencyKey(key string) SubmitOption {
	return func(o *submitOptions) {
		o.idempotencyKey = key
	}
}

// Submit validates and stores one post.
//
// The image must be non-empty and decodable, and author must be authenticated;
// these checks run before any network call. The image is re-encoded as JPEG,
// uploaded, and referenced from a new record holding the caption and the
// author's username. Nothing is retried.
func (s *Submitter) Submit(
	ctx context.Context, img []byte, caption string, author *backend.Identity, opts ...SubmitOption,
) (*Receipt, error) {
	o := submitOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.idempotencyKey == "" {
		o.idempotencyKey = s.newKey()
	}

	ctx, span := otel.StartSpan(ctx, s.tracer, "feed.Submit",
		trace.WithAttributes(
			otel.AttrCollection.String(s.collection),
			otel.AttrIdempotencyKey.String(o.idempotencyKey),
			otel.AttrImageBytes.Int(len(img)),
		),
	)
	defer span.End()

	start := time.Now()
	receipt, err := s.submit(ctx, img, caption, author, o.idempotencyKey)

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		otel.RecordError(span, err)
		slog.WarnContext(ctx, "Post submission failed",
			"idempotency_key", o.idempotencyKey,
			"kind", outcome,
			"error", err)
	} else {
		slog.InfoContext(ctx, "Post submitted",
			"post_id", receipt.PostID,
			"idempotency_key", o.idempotencyKey)
	}
	s.metrics.RecordSubmission(ctx, time.Since(start), outcome)

	return receipt, err
}

func (s *Submitter) submit(
	ctx context.Context, img []byte, caption string, author *backend.Identity, key string,
) (*Receipt, error) {
	if len(img) == 0 {
		return nil, newError(ErrorKindMissingImage, "no image selected", nil)
	}

	encoded, err := encodeJPEG(img, s.jpegQuality)
	if err != nil {
		return nil, newError(ErrorKindEncodingFailure, "failed to convert image", err)
	}

	if !author.Authenticated() {
		return nil, newError(ErrorKindNotAuthenticated, "no user is logged in", backend.ErrNotAuthenticated)
	}

	ref, err := s.client.UploadFile(ctx, author, uploadFileName, uploadContentType, encoded, key+"-file")
	if err != nil {
		return nil, classifyWriteError(ctx, "failed to upload image", err)
	}

	postID, err := s.client.InsertRecord(ctx, author, s.collection, backend.Fields{
		backend.FieldCaption:  caption,
		backend.FieldUsername: author.Username,
		backend.FieldPhoto:    ref.FilePointer(),
	}, key)
	if err != nil {
		return nil, classifyWriteError(ctx, "failed to store post", err)
	}

	return &Receipt{
		PostID:         postID,
		Asset:          ref,
		IdempotencyKey: key,
	}, nil
}

func classifyWriteError(ctx context.Context, message string, err error) *Error {
	switch {
	case backend.IsTimeout(err):
		return newError(ErrorKindRemoteTimeout, message, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return newError(ErrorKindCanceled, message, err)
	case backend.IsInvalidSession(err), errors.Is(err, backend.ErrNotAuthenticated):
		return newError(ErrorKindNotAuthenticated, message, err)
	default:
		return newError(ErrorKindRemoteWriteFailure, message, err)
	}
}

// encodeJPEG decodes any registered image format and re-encodes it as JPEG
func encodeJPEG(data []byte, quality int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("image dimensions %dx%d exceed %d pixels", cfg.Width, cfg.Height, maxImagePixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
