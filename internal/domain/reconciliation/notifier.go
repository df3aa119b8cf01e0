// internal/domain/reconciliation/notifier.go
package reconciliation

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier alerts administrators when a run finds critical discrepancies.
// Calls are best-effort; the engine never depends on them succeeding.
type Notifier interface {
	NotifyCriticalDiscrepancies(ctx context.Context, report *Report, discrepancies []Discrepancy) error
}

// LogNotifier is the default Notifier; it records the alert in the service
// log. Deployments wire an email or chat notifier in its place.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyCriticalDiscrepancies logs the critical findings of a run.
func (n *LogNotifier) NotifyCriticalDiscrepancies(_ context.Context, report *Report, discrepancies []Discrepancy) error {
	n.logger.WithFields(logrus.Fields{
		"report_id":              report.ID,
		"critical_discrepancies": report.CriticalDiscrepancies,
		"total_discrepancies":    report.TotalDiscrepancies,
	}).Error("reconciliation found critical inventory discrepancies")

	for i := range discrepancies {
		d := &discrepancies[i]
		if d.Severity != SeverityCritical {
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"report_id":       report.ID,
			"warehouse_id":    d.WarehouseID,
			"sku_id":          d.SKUID,
			"batch_lot":       d.BatchLot,
			"current_cartons": d.CurrentCartons,
		}).Error("critical negative balance")
	}
	return nil
}
