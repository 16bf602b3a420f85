package twitchlike

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alvarorichard/streamlive/internal/resolver"
	"github.com/alvarorichard/streamlive/internal/stream"
)

func TestClient_CanResolve(t *testing.T) {
	c := New()
	assert.True(t, c.CanResolve("https://twitchlike.tv/someuser"))
	assert.False(t, c.CanResolve("https://afreecalike.tv/someroom"))
}

func TestHandle_OfflineBuildStreamReportsOffline(t *testing.T) {
	h := &handle{status: resolver.StatusOffline, author: "someuser"}
	_, err := h.BuildStream(nil)
	assert.Error(t, err)
	var serr *stream.Error
	if assert.ErrorAs(t, err, &serr) {
		assert.Equal(t, stream.KindOffline, serr.Kind)
	}
}

func TestHandle_MissingRequestIsResolverError(t *testing.T) {
	h := &handle{status: resolver.StatusOnline, author: "someuser"}
	_, err := h.BuildStream(nil)
	assert.Error(t, err)
	var serr *stream.Error
	if assert.ErrorAs(t, err, &serr) {
		assert.Equal(t, stream.KindResolver, serr.Kind)
	}
}
