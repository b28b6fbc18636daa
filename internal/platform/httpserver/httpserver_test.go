package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadTimeout(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want time.Duration
	}{
		{name: "no body limit", size: 0, want: 10 * time.Second},
		{name: "one byte rounds up", size: 1, want: 11 * time.Second},
		{name: "statement upload limit", size: 10 << 20, want: 50 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadTimeout(tt.size))
		})
	}
}

func TestNew(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), 10<<20)
	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 50*time.Second, srv.ReadTimeout)
	assert.Equal(t, 80*time.Second, srv.WriteTimeout)
}
