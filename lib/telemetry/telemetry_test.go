package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithoutExporters(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	if err != nil {
		t.Fatal(err)
	}
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNewLoggerLevel(t *testing.T) {
	buff := bytes.NewBuffer(nil)

	quiet := NewLogger(buff, false)
	quiet.Info("hidden")
	require.Empty(t, buff.String())
	quiet.Warn("shown")
	require.Contains(t, buff.String(), "shown")

	buff.Reset()
	verbose := NewLogger(buff, true)
	verbose.Debug("details", "id", 1)
	require.Contains(t, buff.String(), "details")
}

func TestOtlpTransport(t *testing.T) {
	{
		conn := OtlpConnConfig{HttpEndpoint: "http://localhost:4318/v1/traces"}
		require.Equal(t, transportHttp, conn.transport())
		require.Equal(t, "http://localhost:4318/v1/traces", conn.endpoint())
	}
	{
		conn := OtlpConnConfig{
			GrpcEndpoint: "http://localhost:4317",
			HttpEndpoint: "http://localhost:4318/v1/traces",
		}
		require.Equal(t, transportGrpc, conn.transport())
		require.Equal(t, "http://localhost:4317", conn.endpoint())
	}
}

func TestSetupExportsTraces(t *testing.T) {
	var lock sync.Mutex
	paths := map[string]int{}
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lock.Lock()
		paths[r.URL.Path]++
		lock.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	ctx := context.Background()
	tel, err := Setup(ctx, "test:telemetry", Config{
		Otlp: OtlpConfig{
			Traces: OtlpConnConfig{HttpEndpoint: collector.URL + "/v1/traces"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.NotNil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)

	_, span := Tracer("test:telemetry").Start(ctx, "upload")
	span.End()

	require.NoError(t, tel.Shutdown(ctx))

	lock.Lock()
	defer lock.Unlock()
	require.Equal(t, 1, paths["/v1/traces"])
}
