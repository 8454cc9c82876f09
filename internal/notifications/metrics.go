// Package notifications publishes run-level telemetry for the overdue scan.
// Content builders and delivery adapters live in the email and push
// subpackages.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"fleetcare/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchScanMetrics emits one PutMetricData call per scan run.
//
// Metrics emitted, all with the Trigger dimension:
//   - ScanUsers, ScanOverdueMaintenances, ScanNotifications, ScanUserErrors (Count)
//   - ScanDuration (Milliseconds)
//   - DeliverySuccess, DeliveryFailed with Channel {email, push}
//   - NotificationsByTier with Tier {warning, urgent, critical}
type CloudWatchScanMetrics struct {
	client    CloudWatchClient
	namespace string
}

// NewCloudWatchScanMetrics creates a CloudWatchScanMetrics. An empty
// namespace uses types.MetricNamespace.
func NewCloudWatchScanMetrics(client CloudWatchClient, namespace string) *CloudWatchScanMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchScanMetrics{client: client, namespace: namespace}
}

// EmitScan publishes the counters of summary.
func (m *CloudWatchScanMetrics) EmitScan(ctx context.Context, trigger string, summary types.ScanSummary, duration time.Duration) error {
	triggerDim := cwtypes.Dimension{Name: aws.String(types.DimTrigger), Value: aws.String(trigger)}
	now := time.Now()

	count := func(name string, v int, extra ...cwtypes.Dimension) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(float64(v)),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  aws.Time(now),
			Dimensions: append([]cwtypes.Dimension{triggerDim}, extra...),
		}
	}
	channel := func(c string) cwtypes.Dimension {
		return cwtypes.Dimension{Name: aws.String(types.DimChannel), Value: aws.String(c)}
	}
	tier := func(t types.Tier) cwtypes.Dimension {
		return cwtypes.Dimension{Name: aws.String(types.DimTier), Value: aws.String(string(t))}
	}

	data := []cwtypes.MetricDatum{
		count(types.MetricScanUsers, summary.TotalUsers),
		count(types.MetricScanOverdue, summary.TotalOverdueMaintenances),
		count(types.MetricScanNotifications, summary.TotalNotifications),
		count(types.MetricScanUserErrors, len(summary.Errors)),
		count(types.MetricDeliverySuccess, summary.SuccessfulEmails, channel("email")),
		count(types.MetricDeliveryFailed, summary.FailedEmails, channel("email")),
		count(types.MetricDeliverySuccess, summary.SuccessfulPush, channel("push")),
		count(types.MetricDeliveryFailed, summary.FailedPush, channel("push")),
		count(types.MetricNotificationsByTier, summary.Breakdown.Warning, tier(types.TierWarning)),
		count(types.MetricNotificationsByTier, summary.Breakdown.Urgent, tier(types.TierUrgent)),
		count(types.MetricNotificationsByTier, summary.Breakdown.Critical, tier(types.TierCritical)),
		{
			MetricName: aws.String(types.MetricScanDuration),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Timestamp:  aws.Time(now),
			Dimensions: []cwtypes.Dimension{triggerDim},
		},
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("publishing scan metrics: %w", err)
	}
	return nil
}
