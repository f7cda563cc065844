package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/anchorkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.AssetSource = (*Store)(nil)

type fakeClient struct {
	objects  map[string][]byte
	pageSize int
	getErr   error
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var matched []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range matched {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := start + f.pageSize
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if f.pageSize == 0 || end >= len(matched) {
		end = len(matched)
	} else {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(matched[end])
	}
	for _, k := range matched[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestStore_FetchAppliesPrefixAndMapsNotFound(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{objects: map[string][]byte{"models/crane3d0.yaml": []byte("name: crane")}}
	st := NewWithClient(client, "bucket", "models/")

	data, err := st.Fetch(ctx, "crane3d0.yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: crane", string(data))

	_, err = st.Fetch(ctx, "missing.yaml")
	require.ErrorIs(t, err, core.ErrArtifactNotFound)
}

func TestStore_FetchPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	st := NewWithClient(&fakeClient{getErr: boom}, "bucket", "")

	_, err := st.Fetch(context.Background(), "x")
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, core.ErrArtifactNotFound))
}

func TestStore_ListPaginates(t *testing.T) {
	client := &fakeClient{pageSize: 2, objects: map[string][]byte{
		"models/crane3d0.yaml": nil,
		"models/crane3d1.yaml": nil,
		"models/crane3d2.yaml": nil,
		"models/boat3d0.yaml":  nil,
		"other/crane3d9.yaml":  nil,
	}}
	st := NewWithClient(client, "bucket", "models/")

	keys, err := st.List(context.Background(), "crane")
	require.NoError(t, err)
	assert.Equal(t, []string{"crane3d0.yaml", "crane3d1.yaml", "crane3d2.yaml"}, keys)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}
