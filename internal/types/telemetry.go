package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricScanUsers           = "ScanUsers"
	MetricScanOverdue         = "ScanOverdueMaintenances"
	MetricScanNotifications   = "ScanNotifications"
	MetricScanUserErrors      = "ScanUserErrors"
	MetricScanDuration        = "ScanDuration"
	MetricDeliverySuccess     = "DeliverySuccess"
	MetricDeliveryFailed      = "DeliveryFailed"
	MetricNotificationsByTier = "NotificationsByTier"

	// Dimension Keys
	DimChannel = "Channel"
	DimTier    = "Tier"
	DimTrigger = "Trigger"

	// Metric Namespace
	MetricNamespace = "Fleetcare"
)
