/*
Package bucket implements the object-storage bucket validator: a pure
boundary check at the edge of the Assignment Handler, using
github.com/aws/aws-sdk-go-v2's s3 client for the accessibility check.

Name syntax is checked locally; accessibility is checked with HeadBucket
unless the caller opts out with the dummy access key id, an explicit
test-environment bypass.

# Usage

	v := bucket.NewValidator()
	result, err := v.Validate(ctx, bucket.Request{Bucket: name, Region: region, Credentials: creds})

# See Also

  - pkg/assignment for the sole caller
*/
package bucket
