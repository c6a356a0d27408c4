package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func fireEntry(t *testing.T, hook *LogrusCollector, level logrus.Level, prefix string) {
	t.Helper()
	entry := &logrus.Entry{
		Logger: logrus.StandardLogger(),
		Level:  level,
		Data:   logrus.Fields{},
	}
	if prefix != "" {
		entry.Data[prefixKey] = prefix
	}
	if err := hook.Fire(entry); err != nil {
		t.Fatalf("Unexpected hook error: %v", err)
	}
}

func TestLogrusCollector_CountsByLevelAndPrefix(t *testing.T) {
	hook := NewLogrusCollector()

	fireEntry(t, hook, logrus.InfoLevel, "pipeline")
	fireEntry(t, hook, logrus.InfoLevel, "pipeline")
	fireEntry(t, hook, logrus.WarnLevel, "pipeline")
	fireEntry(t, hook, logrus.ErrorLevel, "")

	if got := testutil.ToFloat64(counterVec.WithLabelValues("info", "pipeline")); got != 2 {
		t.Errorf("Unexpected info count: %v", got)
	}
	if got := testutil.ToFloat64(counterVec.WithLabelValues("warning", "pipeline")); got != 1 {
		t.Errorf("Unexpected warn count: %v", got)
	}
	// Entries without a prefix land in the global bucket.
	if got := testutil.ToFloat64(counterVec.WithLabelValues("error", defaultprefix)); got != 1 {
		t.Errorf("Unexpected error count: %v", got)
	}
}

func TestLogrusCollector_RejectsNonStringPrefix(t *testing.T) {
	hook := NewLogrusCollector()
	entry := &logrus.Entry{
		Logger: logrus.StandardLogger(),
		Level:  logrus.InfoLevel,
		Data:   logrus.Fields{prefixKey: 42},
	}
	if err := hook.Fire(entry); err == nil {
		t.Error("Expected an error for a non-string prefix")
	}
}
