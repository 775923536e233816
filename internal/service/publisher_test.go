package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(config.Config{PublishPlatform: "instagram"}, nil)
	require.NoError(t, err)
	_, err = p.Publish(context.Background(), PublishRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err = NewPublisher(config.Config{Instagram: config.Instagram{UserID: "1", AccessToken: "t"}}, nil)
	require.NoError(t, err)
	_, ok := p.(InstagramService)
	assert.True(t, ok)

	p, err = NewPublisher(config.Config{PublishPlatform: "YouTube", GoogleClientID: "id", YoutubeRefresh: "refresh"}, nil)
	require.NoError(t, err)
	_, ok = p.(MetricsSource)
	assert.True(t, ok)

	_, err = NewPublisher(config.Config{PublishPlatform: "myspace"}, nil)
	assert.Error(t, err)
}

func TestR2PresignGet(t *testing.T) {
	r2 := NewR2Service(config.R2{AccountID: "acct", AccessKey: "key", SecretKey: "secret", BucketName: "reels", URLExpiry: 30 * time.Minute})
	assert.True(t, r2.Configured())
	assert.False(t, NewR2Service(config.R2{AccountID: "acct"}).Configured())

	signed, err := r2.PresignGet(context.Background(), "reels/abc.mp4")
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(u.Host, "acct.r2.cloudflarestorage.com"), u.Host)
	assert.True(t, strings.HasSuffix(u.Path, "/reels/abc.mp4"), u.Path)
	assert.Equal(t, "1800", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}
