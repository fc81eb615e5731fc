package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cronosflow/cronosflow/libs/grpcx"
)

// GatewayReadyCheck probes the calendar-sync gateway's gRPC health endpoint.
func GatewayReadyCheck(addr string) func(context.Context) error {
	return func(ctx context.Context) error {
		if addr == "" {
			return errors.New("calendar gateway address not configured")
		}
		conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 2 * time.Second})
		if err != nil {
			return err
		}
		defer conn.Close()

		resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
		if err != nil {
			return err
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			return fmt.Errorf("calendar gateway health: %s", resp.GetStatus())
		}
		return nil
	}
}
