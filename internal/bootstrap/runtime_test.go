package bootstrap

import (
	"testing"

	"github.com/anonto42/buddyfeed/internal/media"
	"github.com/anonto42/buddyfeed/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		strategy string
		want     string
		wantErr  bool
	}{
		{"inline", config.ImageInline, media.StrategyInline, false},
		{"imgbb", config.ImageImgBB, media.StrategyImgBB, false},
		{"blob without firebase", config.ImageBlob, "", true},
		{"unknown", "ftp", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, err := NewImageStore(&config.Config{ImageStrategy: tt.strategy, ImgBBAPIKey: "k"}, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, store.Strategy())
		})
	}
}

func TestNewMemoryRuntime(t *testing.T) {
	t.Parallel()

	rt := NewMemoryRuntime("secret")
	assert.NotNil(t, rt.Provider)
	assert.NotNil(t, rt.Posts)
	assert.NotNil(t, rt.Comments)
	assert.NotNil(t, rt.Users)
	assert.Equal(t, media.StrategyInline, rt.Images.Strategy())
	rt.Close()
}
