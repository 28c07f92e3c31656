package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOp(t *testing.T) {
	before := testutil.ToFloat64(RundownOpsTotal.WithLabelValues("AddItem", "ok"))
	ObserveOp("AddItem", "ok", time.Now().Add(-time.Millisecond))
	assert.Equal(t, before+1, testutil.ToFloat64(RundownOpsTotal.WithLabelValues("AddItem", "ok")))
}
