package afreecalike

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alvarorichard/streamlive/internal/resolver"
	"github.com/alvarorichard/streamlive/internal/stream"
)

func TestClient_CanResolve(t *testing.T) {
	c := New()
	assert.True(t, c.CanResolve("https://afreecalike.tv/someroom123"))
	assert.False(t, c.CanResolve("https://twitchlike.tv/someuser"))
}

func TestDropPreloadingSegments(t *testing.T) {
	assert.False(t, dropPreloadingSegments("preloading-3.ts"))
	assert.True(t, dropPreloadingSegments("segment-3.ts"))
}

func TestHandle_OfflineBuildStreamReportsOffline(t *testing.T) {
	h := &handle{status: resolver.StatusOffline, author: "someroom"}
	_, err := h.BuildStream(nil)
	assert.Error(t, err)
	var serr *stream.Error
	if assert.ErrorAs(t, err, &serr) {
		assert.Equal(t, stream.KindOffline, serr.Kind)
	}
}
