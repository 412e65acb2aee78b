package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with billing-specific helpers
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance
func New(level string) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithFields creates a new logger entry with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// WithBillID creates a new logger entry with bill ID field
func (l *Logger) WithBillID(billID string) *logrus.Entry {
	return l.Logger.WithField("bill_id", billID)
}

// Audit logs audit events with structured format
func (l *Logger) Audit(username, action, resource string, success bool, details map[string]interface{}) {
	entry := l.Logger.WithFields(logrus.Fields{
		"audit":    true,
		"username": username,
		"action":   action,
		"resource": resource,
		"success":  success,
		"details":  details,
	})

	if success {
		entry.Info("Audit event")
	} else {
		entry.Warn("Audit event failed")
	}
}

// BillingEvent logs billing pipeline events with stage context
func (l *Logger) BillingEvent(stage, patientID, status string, details map[string]interface{}) {
	l.Logger.WithFields(logrus.Fields{
		"billing":    true,
		"stage":      stage,
		"patient_id": patientID,
		"status":     status,
		"details":    details,
	}).Info("Billing pipeline event")
}

// Security logs security-related events
func (l *Logger) Security(event string, username string, details map[string]interface{}) {
	l.Logger.WithFields(logrus.Fields{
		"security": true,
		"event":    event,
		"username": username,
		"details":  details,
	}).Warn("Security event")
}
