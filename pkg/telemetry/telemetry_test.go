package telemetry

import (
	"context"
	"testing"

	"github.com/qnkhuat/chessmon/pkg/config"
)

func TestSetupDisabled(t *testing.T) {
	for _, cfg := range []config.Telemetry{
		{},
		{Endpoint: "http://localhost:4318", Enabled: false},
	} {
		shutdown, err := Setup(context.Background(), "chessmon-test", cfg)
		if err != nil {
			t.Fatalf("setup %+v: %v", cfg, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}
}
