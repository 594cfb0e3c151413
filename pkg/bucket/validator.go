package bucket

import (
	"context"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cuemby/cradle/pkg/types"
)

// dummyAccessKeyID is the explicit opt-in credential value that skips the
// remote HeadBucket check, for test environments with no real bucket.
const dummyAccessKeyID = "dummy"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// ValidName reports whether name conforms to the bucket name syntax: 3-63
// lowercase alphanumerics plus '.' and '-', not starting or ending with
// '.' or '-'.
func ValidName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	return namePattern.MatchString(name)
}

// Credentials carries caller-supplied (request-scoped) access credentials.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// Request is the input to Validate.
type Request struct {
	Bucket          string
	Region          string
	Credentials     *Credentials
	SkipRemoteCheck bool
}

// Result is Validate's successful outcome: the bucket's actual region,
// which may differ from the one requested.
type Result struct {
	Region string
}

// Validator checks bucket name syntax and, unless the caller supplies the
// dummy credential opt-out, verifies the bucket is reachable via HeadBucket.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks name syntax, then (unless skipped) accessibility.
func (v *Validator) Validate(ctx context.Context, req Request) (*Result, error) {
	if !ValidName(req.Bucket) {
		return nil, types.Wrap(types.KindInvalidBucket, "bucket name fails syntax check: "+req.Bucket, nil)
	}

	if req.SkipRemoteCheck || (req.Credentials != nil && req.Credentials.AccessKeyID == dummyAccessKeyID) {
		return &Result{Region: req.Region}, nil
	}

	cfgOpts := []func(*awsconfig.LoadOptions) error{}
	if req.Region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(req.Region))
	}
	if req.Credentials != nil {
		cfgOpts = append(cfgOpts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			req.Credentials.AccessKeyID, req.Credentials.SecretAccessKey, "",
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, types.Wrap(types.KindInvalidBucket, "failed to load aws config", err)
	}

	client := s3.NewFromConfig(cfg)
	out, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(req.Bucket)})
	if err != nil {
		return nil, types.Wrap(types.KindInvalidBucket, "bucket not accessible: "+req.Bucket, err)
	}

	region := req.Region
	if out.BucketRegion != nil && *out.BucketRegion != "" {
		region = *out.BucketRegion
	}

	return &Result{Region: region}, nil
}
