package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "otp-relay/otp"

// metrics counts OTP request lifecycle outcomes.
type metrics struct {
	created    metric.Int64Counter
	sent       metric.Int64Counter
	sendFailed metric.Int64Counter
	responded  metric.Int64Counter
	rejected   metric.Int64Counter
	expired    metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	m := mp.Meter(meterName)
	var out metrics
	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&out.created, "otp_relay.requests.created", "OTP requests created"},
		{&out.sent, "otp_relay.requests.sent", "OTP cards delivered to chat"},
		{&out.sendFailed, "otp_relay.requests.send_failed", "OTP card deliveries that failed"},
		{&out.responded, "otp_relay.requests.responded", "OTP answers committed"},
		{&out.rejected, "otp_relay.answers.rejected", "OTP answers refused by a guard"},
		{&out.expired, "otp_relay.requests.expired", "OTP requests expired by the sweeper"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func platformAttr(platform string) metric.AddOption {
	return metric.WithAttributes(attribute.String("platform", platform))
}

func (m *metrics) reject(ctx context.Context, platform, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("reason", reason),
	))
}
