// Remote storage support for S3 table locations.
package ps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Scheme is the scheme of a table location
type Scheme string

const (
	SchemeFile  Scheme = "file"
	SchemeS3    Scheme = "s3"
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeLocal Scheme = "local" // no scheme, local path
)

// DetectScheme detects the URL scheme from a path string
func DetectScheme(uri string) Scheme {
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(lower, "s3://"), strings.HasPrefix(lower, "s3a://"):
		return SchemeS3
	case strings.HasPrefix(lower, "https://"):
		return SchemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return SchemeHTTP
	case strings.HasPrefix(lower, "file://"):
		return SchemeFile
	default:
		return SchemeLocal
	}
}

// IsRemote reports whether uri needs network access.
func IsRemote(uri string) bool {
	switch DetectScheme(uri) {
	case SchemeS3, SchemeHTTP, SchemeHTTPS:
		return true
	default:
		return false
	}
}

// LocalPath strips a file:// prefix.
func LocalPath(uri string) string {
	if DetectScheme(uri) == SchemeFile {
		return uri[len("file://"):]
	}
	return uri
}

// ParseS3URL parses s3://bucket/key into bucket and key parts
func ParseS3URL(url string) (bucket, key string, err error) {
	rest := url
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], strings.Trim(parts[1], "/"), nil
}

// NewS3Client creates an S3 client with the given configuration
func NewS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error

	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	if opts.HasStaticCredentials() {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, opts.SessionToken)
		loadOpts = append(loadOpts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// S3Store serves a table rooted at an S3 prefix.
type S3Store struct {
	client *s3.Client
	uri    string
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, uri string, opts Options) (*S3Store, error) {
	bucket, prefix, err := ParseS3URL(uri)
	if err != nil {
		return nil, err
	}

	client, err := NewS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &S3Store{
		client: client,
		uri:    strings.TrimSuffix(uri, "/"),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3Store) Root() string {
	return s.uri
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return strings.TrimPrefix(name, "/")
	}
	return path.Join(s.prefix, name)
}

func (s *S3Store) List(ctx context.Context, dir string) ([]ObjectInfo, error) {
	prefix := s.key(dir) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var infos []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{Name: strings.TrimPrefix(aws.ToString(obj.Key), prefix)}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.ModTime = *obj.LastModified
			}
			if info.Name != "" {
				infos = append(infos, info)
			}
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			infos = append(infos, ObjectInfo{Name: name, IsDir: true})
		}
	}

	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.uri+"/"+dir)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

func (s *S3Store) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
