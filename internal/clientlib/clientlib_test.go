package clientlib_test

import (
	"net/http/httptest"
	"testing"

	"github.com/CamberLoid/FHEVault/internal/codec"
	"github.com/CamberLoid/FHEVault/internal/server"
	"github.com/CamberLoid/FHEVault/internal/serverlib"
	"github.com/CamberLoid/FHEVault/internal/store"
	"github.com/rs/zerolog"
)

// newTestServer 启动带完整路由的服务端，存储在内存中
func newTestServer(t *testing.T) *httptest.Server {
	svc := serverlib.NewService(store.NewMemory(), codec.NewRegistry(codec.Mock{}, codec.NewCKKS()), zerolog.Nop())
	srv := httptest.NewServer(server.New(server.Config{
		Version: "test",
		Service: svc,
		Log:     zerolog.Nop(),
		DevMode: true,
	}).Handler())
	t.Cleanup(srv.Close)
	return srv
}
