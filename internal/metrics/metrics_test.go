package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordJobStartedAndCompleted(t *testing.T) {
	RecordJobStarted("VOD")
	require.Equal(t, float64(1), testutil.ToFloat64(JobsInFlight.WithLabelValues("VOD")))

	RecordJobCompleted("VOD", "done")
	require.Equal(t, float64(0), testutil.ToFloat64(JobsInFlight.WithLabelValues("VOD")))
}

func TestRecordSegmentDownload(t *testing.T) {
	before := testutil.ToFloat64(SegmentBytesTotal)
	RecordSegmentDownload("ok", 1024)
	require.Equal(t, before+1024, testutil.ToFloat64(SegmentBytesTotal))
}

func TestRecordDRMRequest(t *testing.T) {
	RecordDRMRequest("wv", "ok")
	require.Equal(t, float64(1), testutil.ToFloat64(DRMLicenseRequestsTotal.WithLabelValues("wv", "ok")))
}

func TestRecordKeyVaultLookup(t *testing.T) {
	RecordKeyVaultLookup("hit")
	require.GreaterOrEqual(t, testutil.ToFloat64(KeyVaultHitsTotal.WithLabelValues("hit")), float64(1))
}
